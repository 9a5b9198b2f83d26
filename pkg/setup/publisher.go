package setup

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/devicelab-dev/farm-runner/pkg/config"
	"github.com/devicelab-dev/farm-runner/pkg/logger"
	"github.com/google/uuid"
)

// IdentifierLength is the length of generated tunnel identifiers.
const IdentifierLength = 10

// ResolveApp returns the farm's identifier for the binary at appPath, uploading
// it when cfg.UploadApp is set and otherwise looking up the latest upload with
// the same file name. A successful upload is cached in cfg.CloudAppID and
// reused by later calls.
func ResolveApp(ctx context.Context, cfg *config.Config, store AppStore, appPath string) (string, error) {
	appName := filepath.Base(appPath)
	logger.Info("Resolving app id for: %s", appPath)

	var appID string
	if cfg.UploadApp {
		if cfg.CloudAppID != "" {
			logger.Info("Reusing uploaded app id: %s", cfg.CloudAppID)
			return cfg.CloudAppID, nil
		}
		id, err := store.UploadApp(ctx, appPath, appName)
		if err != nil {
			return "", fmt.Errorf("upload app '%s': %w", appPath, err)
		}
		logger.Info("App: '%s' uploaded to the device farm as '%s'", appPath, id)
		cfg.CloudAppID = id
		appID = id
	} else {
		logger.Info("Skip uploading the app to the device farm")
		id, err := store.RecentApp(ctx, appName)
		if err != nil {
			return "", err
		}
		appID = id
	}

	logger.Info("Using appId: %s", appID)
	return appID, nil
}

// RandomIdentifier returns a random lowercase hex identifier of IdentifierLength.
func RandomIdentifier() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:IdentifierLength]
}
