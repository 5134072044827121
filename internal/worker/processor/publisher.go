package processor

import (
	"context"
	"os"
	"path"
	"path/filepath"

	"scenecast/internal/pkg/logger"
	"scenecast/internal/ports"
)

// Publisher makes rendered artifacts reachable through a storage provider.
type Publisher struct {
	sp  ports.StorageProvider
	log *logger.Logger
}

func NewPublisher(sp ports.StorageProvider, log *logger.Logger) *Publisher {
	return &Publisher{sp: sp, log: log.WithComponent("publisher")}
}

// Publish returns the object key for localPath, or "" when there is no
// provider or the upload failed. Files already under a local provider's root
// are addressed in place; anything else is uploaded as prefix/<basename>.
func (p *Publisher) Publish(ctx context.Context, localPath, prefix, contentType string) string {
	if p == nil || p.sp == nil || localPath == "" {
		return ""
	}
	log := p.log.FromContext(ctx)

	if keyer, ok := p.sp.(ports.LocalKeyer); ok {
		if key, ok := keyer.KeyFor(localPath); ok {
			return key
		}
	}

	st, err := os.Stat(localPath)
	if err != nil {
		log.Warn("artifact missing, not published", "path", localPath, "error", err.Error())
		return ""
	}
	f, err := os.Open(localPath)
	if err != nil {
		log.Warn("could not open artifact", "path", localPath, "error", err.Error())
		return ""
	}
	defer f.Close()

	out, err := p.sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   path.Join(prefix, filepath.Base(localPath)),
		ContentType: contentType,
		Reader:      f,
		Size:        st.Size(),
	})
	if err != nil {
		log.Warn("artifact upload failed",
			"path", localPath,
			"provider", p.sp.Provider(),
			"error", err.Error(),
		)
		return ""
	}

	log.Info("artifact published",
		"provider", p.sp.Provider(),
		"key", out.ObjectKey,
		logger.Bytes("size", out.Size),
	)
	return out.ObjectKey
}
