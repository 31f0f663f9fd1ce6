// Package factory builds the source registry from configuration.
package factory

import (
	"fmt"

	"github.com/newthinker/sheetpulse/internal/config"
	"github.com/newthinker/sheetpulse/internal/source"
	"github.com/newthinker/sheetpulse/internal/source/blob"
	"github.com/newthinker/sheetpulse/internal/source/gsheet"
)

// New creates a registry holding one source per configured entry, in
// configuration order. All s3 sources share a single bucket client.
func New(cfg *config.Config) (*source.Registry, error) {
	reg := source.NewRegistry()
	var s3Store blob.Store

	for _, sc := range cfg.Sources {
		id := sc.SourceID()
		sel := source.SheetSelector{Name: sc.Worksheet, Index: sc.SheetIndex}

		switch sc.Type {
		case config.SourceGSheet:
			src, err := gsheet.New(gsheet.Config{
				ID:              id,
				SheetID:         sc.SheetID,
				Worksheet:       sc.Worksheet,
				SheetIndex:      sc.SheetIndex,
				BaseURL:         sc.BaseURL,
				AccessToken:     sc.AccessToken,
				CredentialsFile: sc.CredentialsFile,
				Timeout:         cfg.Sync.Timeout,
			})
			if err != nil {
				return nil, fmt.Errorf("source %s: %w", id, err)
			}
			reg.Register(src)

		case config.SourceFile:
			store, err := blob.NewLocalFS(sc.Dir)
			if err != nil {
				return nil, fmt.Errorf("source %s: %w", id, err)
			}
			reg.Register(source.NewWorkbook(id, config.SourceFile, store, sc.Path, sel))

		case config.SourceS3:
			if s3Store == nil {
				store, err := blob.NewS3(blob.S3Config{
					Bucket:    cfg.S3.Bucket,
					Endpoint:  cfg.S3.Endpoint,
					Region:    cfg.S3.Region,
					AccessKey: cfg.S3.AccessKey,
					SecretKey: cfg.S3.SecretKey,
					Prefix:    cfg.S3.Prefix,
				})
				if err != nil {
					return nil, fmt.Errorf("source %s: %w", id, err)
				}
				s3Store = store
			}
			reg.Register(source.NewWorkbook(id, config.SourceS3, s3Store, sc.Path, sel))

		default:
			return nil, fmt.Errorf("source %s: unknown type %q", id, sc.Type)
		}
	}

	return reg, nil
}
