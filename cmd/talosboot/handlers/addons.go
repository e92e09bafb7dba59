package handlers

import (
	"context"
	"log"
	"os"

	"github.com/imamik/talosboot/internal/config"
	"github.com/imamik/talosboot/internal/util/prerequisites"
)

// Addons handles the addons command: install the add-on stack against
// an already bootstrapped cluster.
func Addons(ctx context.Context, opts UpOptions) error {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return err
	}
	if err := prerequisites.CheckDefault().Error(); err != nil {
		return err
	}

	logger := log.New(os.Stdout, "", log.LstdFlags)
	return installAddons(ctx, cfg, config.LoadTimeouts(), logger)
}
