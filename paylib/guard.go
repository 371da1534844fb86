package paylib

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

var ErrLoad = errors.New("paylib: payment library failed to load")

// Guard wraps a Loader so that concurrent callers share one in-flight script fetch.
type Guard struct {
	loader    Loader
	scriptURL string
	group     singleflight.Group
	log       logrus.FieldLogger
}

func NewGuard(loader Loader, scriptURL string, log logrus.FieldLogger) *Guard {
	if scriptURL == "" {
		scriptURL = DefaultScriptURL
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Guard{loader: loader, scriptURL: scriptURL, log: log.WithField("component", "paylib")}
}

func (g *Guard) Loaded() bool { return g.loader.Loaded() }

// Ensure loads the library unless it is already present.
// The returned bool is true when this call waited on a fetch.
func (g *Guard) Ensure(ctx context.Context) (bool, error) {
	if g.loader.Loaded() {
		return false, nil
	}
	ch := g.group.DoChan(g.scriptURL, func() (interface{}, error) {
		if g.loader.Loaded() {
			return nil, nil
		}
		g.log.WithField("script", g.scriptURL).Info("loading payment library")
		return nil, g.loader.Load(ctx, g.scriptURL)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return true, fmt.Errorf("%w: %v", ErrLoad, res.Err)
		}
	case <-ctx.Done():
		return true, fmt.Errorf("%w: %v", ErrLoad, ctx.Err())
	}
	if !g.loader.Loaded() {
		return true, fmt.Errorf("%w: library absent after load", ErrLoad)
	}
	return true, nil
}

func (g *Guard) New(publishableKey string) (Client, error) {
	return g.loader.New(publishableKey)
}
