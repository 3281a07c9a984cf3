// Package storage talks to an S3-compatible bucket through aws-sdk-go-v2.
//
// Clients never stream file bodies through the API. Instead the service hands
// out presigned PUT and GET URLs, then confirms an upload with HeadObject so
// the stored size, not the size the client claimed, is what counts against the
// workspace storage limit.
//
//	st, err := storage.NewS3Storage(ctx, cfg)
//	req, err := st.PresignUpload(ctx, key, "image/png", size, cfg.UploadURLTTL)
//	info, err := st.Stat(ctx, key)
package storage
