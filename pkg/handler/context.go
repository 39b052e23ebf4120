package handler

// DI for all handlers alike.

import (
	"fmt"
	"time"

	"github.com/yumyai/ggenrich/internal/config"
	"github.com/yumyai/ggenrich/internal/util"
	"github.com/yumyai/ggenrich/logger"
	"github.com/yumyai/ggenrich/pkg/kegg"
	"go.uber.org/zap"
)

type AppContext struct {
	Config  *config.Config
	KEGG    *kegg.Client
	Lookups *LookupJobManager
	Log     *zap.Logger // carries run_id
	RunID   string
	Now     func() time.Time
}

func NewAppContext(cfg *config.Config, runID string) *AppContext {
	return &AppContext{
		Config: cfg,
		KEGG: kegg.NewClient(cfg.KEGGBaseURL, cfg.KEGGTimeout,
			kegg.WithRetry(cfg.KEGGRetries, cfg.KEGGBackoff)),
		Lookups: NewLookupJobManager(),
		Log:     logger.With(zap.String("run_id", runID)),
		RunID:   runID,
		Now:     time.Now,
	}
}

// output is one rendered file waiting to be written.
type output struct {
	path string
	data []byte
}

// writeOutputs is only called once every output of a command has rendered, so a
// parse or render error writes nothing. Each file is replaced atomically, but a
// write error part way through leaves the earlier files of the set in place; the
// returned slice names them.
func (app *AppContext) writeOutputs(outs ...output) ([]string, error) {
	written := make([]string, 0, len(outs))
	for _, o := range outs {
		if err := util.WriteFileAtomic(o.path, o.data); err != nil {
			return written, fmt.Errorf("write %s: %w", o.path, err)
		}
		app.Log.Info("Wrote", zap.String("file", o.path), zap.Int("bytes", len(o.data)))
		written = append(written, o.path)
	}
	return written, nil
}
