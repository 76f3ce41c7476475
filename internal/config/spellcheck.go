package config

import (
	"log/slog"
	"strings"

	"github.com/sahilm/fuzzy"

	"headphones/internal/logging"
)

// checkSectionSpelling warns about sections in the file that no option uses
// but that look like a known section name.
func checkSectionSpelling(logger *slog.Logger, found, known []string) {
	if len(known) == 0 {
		return
	}
	knownLower := make([]string, len(known))
	knownSet := make(map[string]struct{}, len(known))
	for i, name := range known {
		knownLower[i] = strings.ToLower(name)
		knownSet[knownLower[i]] = struct{}{}
	}
	for _, name := range found {
		lower := strings.ToLower(name)
		if _, ok := knownSet[lower]; ok {
			continue
		}
		matches := fuzzy.Find(lower, knownLower)
		if len(matches) == 0 {
			logger.Debug("config section not used by any option", logging.String("section", name))
			continue
		}
		logging.WarnWithContext(logger, "config section looks misspelled", "config_section_typo",
			logging.String("section", name),
			logging.String("suggestion", known[matches[0].Index]),
			logging.String(logging.FieldErrorHint, "rename the section in the config file"),
			logging.String(logging.FieldImpact, "values in this section are ignored"),
		)
	}
}
