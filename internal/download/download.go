package download

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	errors "github.com/jarvis4everyone/jarvis-backend/internal"
	"github.com/jarvis4everyone/jarvis-backend/internal/subscription"
)

var ErrFileNotFound = stdErrors.New("download file not found")

// SubscriptionReader returns the latest subscription of a user.
type SubscriptionReader interface {
	Get(ctx context.Context, userID int64) (*subscription.Subscription, error)
}

// ResolvePath finds the configured file on disk. It tries the path as an
// absolute path, then relative to the working directory, then with a
// "downloads" segment renamed to ".downloads".
func ResolvePath(configPath string) (string, error) {
	hidden := hiddenVariant(configPath)
	candidates := make([]string, 0, 2)
	if filepath.IsAbs(configPath) {
		candidates = append(candidates, configPath)
		if hidden != "" {
			candidates = append(candidates, hidden)
		}
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("working directory: %w", err)
		}
		candidates = append(candidates, filepath.Join(wd, configPath))
		if hidden != "" {
			candidates = append(candidates, filepath.Join(wd, hidden))
		}
	}

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return filepath.Clean(c), nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrFileNotFound, strings.Join(candidates, ", "))
}

// hiddenVariant renames the first "downloads" path element to ".downloads".
func hiddenVariant(p string) string {
	parts := strings.Split(filepath.ToSlash(p), "/")
	for i, part := range parts {
		if part == "downloads" {
			parts[i] = ".downloads"
			return filepath.FromSlash(strings.Join(parts, "/"))
		}
	}
	return ""
}

type Service struct {
	subscriptions SubscriptionReader
	filePath      string
	logger        *slog.Logger
	now           func() time.Time
}

func NewService(subscriptions SubscriptionReader, filePath string, logger *slog.Logger) *Service {
	return &Service{
		subscriptions: subscriptions,
		filePath:      filePath,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Authorize checks the user's subscription and returns the file to stream.
func (s *Service) Authorize(ctx context.Context, userID int64) (string, error) {
	sub, err := s.subscriptions.Get(ctx, userID)
	if err != nil {
		if appErr, ok := errors.IsAppError(err); ok && appErr.Type == errors.ErrorTypeNotFound {
			s.logger.Warn("download denied, no subscription", "user_id", userID)
			return "", errors.NewForbiddenError("No subscription found. Please purchase a subscription to download.", errors.ErrCodeDownloadForbidden)
		}
		return "", err
	}
	if !sub.IsActive(s.now()) {
		s.logger.Warn("download denied, subscription inactive", "user_id", userID, "status", sub.Status)
		return "", errors.NewForbiddenError("Your subscription has expired. Please renew to download.", errors.ErrCodeDownloadForbidden)
	}

	path, err := ResolvePath(s.filePath)
	if err != nil {
		s.logger.Error("download file missing", "config_path", s.filePath, "error", err)
		appErr := errors.NewInternalError("Download file not available", err)
		appErr.Code = errors.ErrCodeDownloadUnavailable
		return "", appErr
	}
	return path, nil
}
