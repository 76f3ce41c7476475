package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator"
)

var validate = validator.New()

// Validate ensures the settings are usable.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			first := fieldErrs[0]
			return fmt.Errorf("config validation error: %s failed %q (value %v)", first.Namespace(), first.Tag(), first.Value())
		}
		return fmt.Errorf("config validation error: %w", err)
	}
	if err := s.validatePostProcess(); err != nil {
		return err
	}
	if err := s.validateProviders(); err != nil {
		return err
	}
	return nil
}

func (s Settings) validatePostProcess() error {
	if _, err := ParseMode(s.PostProcess.FolderPermissions); err != nil {
		return fmt.Errorf("postprocess.folder_permissions: %w", err)
	}
	if _, err := ParseMode(s.PostProcess.FilePermissions); err != nil {
		return fmt.Errorf("postprocess.file_permissions: %w", err)
	}
	if strings.HasPrefix(s.PostProcess.FolderFormat, "/") {
		return errors.New("postprocess.folder_format must be relative to the destination directory")
	}
	return nil
}

func (s Settings) validateProviders() error {
	if s.Torrent.Enabled && s.Torrent.Host == "" {
		return errors.New("torrent.torznab_host is required when torznab is enabled")
	}
	if s.Usenet.Enabled && s.Usenet.Host == "" {
		return errors.New("usenet.newznab_host is required when newznab is enabled")
	}
	return nil
}

// ParseMode parses an octal permission string such as "0755".
func ParseMode(value string) (uint32, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, errors.New("permission is empty")
	}
	mode, err := strconv.ParseUint(value, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("permission %q is not octal", value)
	}
	if mode > 0o7777 {
		return 0, fmt.Errorf("permission %q is out of range", value)
	}
	return uint32(mode), nil
}
