package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"headphones/internal/config"
	"headphones/internal/daemonctl"
	"headphones/internal/ipc"
	"headphones/internal/logging"
	"headphones/internal/snatch"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Open(c.configPath(), c.commandLogger())
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// settings snapshots the loaded config and creates its directories.
func (c *commandContext) settings() (config.Settings, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return config.Settings{}, err
	}
	settings, err := cfg.Settings()
	if err != nil {
		return config.Settings{}, err
	}
	if err := settings.EnsureDirectories(); err != nil {
		return config.Settings{}, err
	}
	return settings, nil
}

func (c *commandContext) logLevel(fallback string) string {
	if c.logLevelFlag != nil {
		if level := strings.TrimSpace(*c.logLevelFlag); level != "" {
			return level
		}
	}
	return fallback
}

// commandLogger writes console logs to stderr so command output on stdout
// stays parseable.
func (c *commandContext) commandLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		logger, err := logging.New(logging.Options{
			Level:            c.logLevel("warn"),
			Format:           "console",
			OutputPaths:      []string{"stderr"},
			ErrorOutputPaths: []string{"stderr"},
		})
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) openStore() (*snatch.Store, error) {
	settings, err := c.settings()
	if err != nil {
		return nil, err
	}
	return snatch.Open(settings)
}

func (c *commandContext) socketPath() (string, error) {
	settings, err := c.settings()
	if err != nil {
		return "", err
	}
	return daemonctl.SocketPath(settings), nil
}

// withDaemon runs fn against the daemon when its socket answers. It reports
// false without error when the daemon is offline.
func (c *commandContext) withDaemon(fn func(*ipc.Client) error) (bool, error) {
	socket, err := c.socketPath()
	if err != nil {
		return false, err
	}
	client, err := ipc.Dial(socket)
	if err != nil {
		if isOffline(err) {
			return false, nil
		}
		return false, wrapDialError(err, socket)
	}
	defer client.Close()
	return true, fn(client)
}

func isOffline(err error) bool {
	return errors.Is(err, syscall.ENOENT) || os.IsNotExist(err) || errors.Is(err, syscall.ECONNREFUSED)
}

func wrapDialError(err error, socket string) error {
	switch {
	case errors.Is(err, syscall.ENOENT) || os.IsNotExist(err):
		return fmt.Errorf("connect to daemon: socket %s not found; start the daemon with `headphones start`", socket)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to daemon: socket %s refused the connection; verify the daemon is running", socket)
	default:
		return fmt.Errorf("connect to daemon: %w", err)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
