// Package email sends transactional email.
//
// NewSender returns a Postmark-backed EmailSender when both Postmark tokens
// are set and a DevSender, which writes messages to disk, otherwise. Message
// bodies are rendered by the templates subpackage.
package email
