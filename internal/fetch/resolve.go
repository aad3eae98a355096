package fetch

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ward-launcher/ward/internal/config"
)

// Resolve fills in the launch's Proton directory. An explicit path is only
// verified; otherwise the latest release is installed, falling back to
// whatever is already under compatibilitytools.d when the network is
// unavailable.
func Resolve(ctx context.Context, launch *config.Launch, log *zap.Logger) error {
	if launch.Proton != "" {
		if info, err := os.Stat(launch.Proton); err != nil || !info.IsDir() {
			return fmt.Errorf("PROTONPATH is not a directory: %s", launch.Proton)
		}
		log.Debug("proton version selected", zap.String("proton", launch.Proton))
		return nil
	}

	compatDir, err := config.SteamCompatDir()
	if err != nil {
		return err
	}

	dir, err := New(compatDir, log).Install(ctx)
	if err != nil {
		log.Debug("could not install latest compatibility tool", zap.Error(err))
		if cached, ok := FindInstalled(compatDir); ok {
			log.Warn("using cached compatibility tool", zap.String("proton", cached))
			launch.Proton = cached
			return nil
		}
		return fmt.Errorf("download failed and no compatibility tool is installed\n" +
			"please set PROTONPATH or install one under compatibilitytools.d")
	}

	launch.Proton = dir
	return nil
}
