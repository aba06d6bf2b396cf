package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	apperrors "replication-connector/internal/shared/errors"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// MaxCollectionNameLength is the longest accepted collection name, in characters
const MaxCollectionNameLength = 100

// ReplicationSettings is the replication form data naming the target collections
type ReplicationSettings struct {
	GoldenCollectionName  string `json:"GoldenCollectionName" validate:"notblank,max=100"`
	VersionCollectionName string `json:"VersionCollectionName" validate:"notblank,max=100"`
}

// CollectionNames are sanitized names ready for store use
type CollectionNames struct {
	Golden  string `json:"golden"`
	Version string `json:"version"`
}

var fieldLabels = map[string]string{
	"GoldenCollectionName":  "Golden record collection name",
	"VersionCollectionName": "Version record collection name",
}

var settingsValidator = newSettingsValidator()

func newSettingsValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}

// SanitizeCollectionName strips every whitespace character from name
func SanitizeCollectionName(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, name)
}

// Sanitized returns the collection names with whitespace removed
func (s ReplicationSettings) Sanitized() CollectionNames {
	return CollectionNames{
		Golden:  SanitizeCollectionName(s.GoldenCollectionName),
		Version: SanitizeCollectionName(s.VersionCollectionName),
	}
}

// ParseReplicationSettings decodes the settings JSON embedded in a replication request
func ParseReplicationSettings(settingsJSON string) (ReplicationSettings, error) {
	var settings ReplicationSettings
	if strings.TrimSpace(settingsJSON) == "" {
		return settings, fmt.Errorf("%w: settings are empty", apperrors.ErrInvalidSettings)
	}
	if err := json.Unmarshal([]byte(settingsJSON), &settings); err != nil {
		return settings, fmt.Errorf("%w: %v", apperrors.ErrInvalidSettings, err)
	}
	return settings, nil
}

// ValidateReplicationSettings returns human readable problems with the settings,
// golden collection first. An empty slice means the settings are usable.
func ValidateReplicationSettings(s ReplicationSettings) []string {
	errs := []string{}
	err := settingsValidator.Struct(s)
	if err == nil {
		return errs
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return append(errs, err.Error())
	}
	for _, fe := range fieldErrs {
		label := fieldLabels[fe.Field()]
		switch fe.Tag() {
		case "notblank":
			errs = append(errs, label+" is empty.")
		case "max":
			errs = append(errs, label+" is too long.")
		default:
			errs = append(errs, fmt.Sprintf("%s is invalid (%s).", label, fe.Tag()))
		}
	}
	return errs
}
