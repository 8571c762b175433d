// Package parser turns free-text WhatsApp commands into structured
// operation descriptors.
package parser

import (
	"math/rand"
	"strings"

	"github.com/Ultra2000/pdfBot/model"
)

// Command is the result of parsing a user command string.
type Command struct {
	Type       model.OperationType
	Parameters map[string]string
}

const passwordLength = 8

const passwordChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var compressModes = []string{"whatsapp", "impression", "équilibré", "balanced"}
var convertFormats = []string{"docx", "xlsx", "img", "image"}
var ocrOutputFormats = []string{"text", "docx"}
var summarizeSizes = []string{"short", "medium", "long", "court", "moyen", "détaillé"}
var translateLanguages = []string{"fr", "en", "es", "de", "it", "pt", "ru", "ar", "zh"}
var secureOptions = []string{"password", "watermark", "both"}

// French size words fold to their English equivalents.
var sizeAliases = map[string]string{
	"court":    "short",
	"moyen":    "medium",
	"détaillé": "long",
}

// Parse parses a command string into an operation type and validated
// parameters. Unknown sub-parameters silently fall back to the operation's
// default; an unrecognized leading token or empty input returns nil.
func Parse(raw string) *Command {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	parts := strings.Fields(raw)
	action := strings.ToUpper(parts[0])
	parameter := ""
	if len(parts) > 1 {
		parameter = strings.ToLower(parts[1])
	}

	params := map[string]string{
		"original_command": strings.TrimSpace(action + " " + strings.ToUpper(parameter)),
	}

	switch action {
	case "COMPRESS":
		params["mode"] = validate(parameter, compressModes, "whatsapp")
		return &Command{Type: model.OpCompress, Parameters: params}

	case "CONVERT":
		format := validate(parameter, convertFormats, "docx")
		if format == "image" {
			format = "img"
		}
		params["format"] = format
		return &Command{Type: model.OpConvert, Parameters: params}

	case "OCR":
		params["output_format"] = validate(parameter, ocrOutputFormats, "text")
		return &Command{Type: model.OpOcr, Parameters: params}

	case "SUMMARIZE":
		size := validate(parameter, summarizeSizes, "short")
		if english, ok := sizeAliases[size]; ok {
			size = english
		}
		params["size"] = size
		return &Command{Type: model.OpSummarize, Parameters: params}

	case "TRANSLATE":
		params["target_language"] = validate(parameter, translateLanguages, "en")
		return &Command{Type: model.OpTranslate, Parameters: params}

	case "SECURE":
		option := validate(parameter, secureOptions, "password")
		params["security_type"] = option
		if option == "password" || option == "both" {
			params["password"] = generatePassword(passwordLength)
		}
		return &Command{Type: model.OpSecure, Parameters: params}
	}

	return nil
}

// IsSupported reports whether the leading token of a command string is a
// recognized operation keyword.
func IsSupported(raw string) bool {
	return Parse(raw) != nil
}

func validate(parameter string, allowed []string, fallback string) string {
	for _, v := range allowed {
		if parameter == v {
			return parameter
		}
	}
	return fallback
}

// generatePassword returns a uniformly distributed alphanumeric password.
// It is intentionally not crypto-grade: the password is sent back to the
// user in plaintext over the messaging channel anyway.
func generatePassword(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = passwordChars[rand.Intn(len(passwordChars))]
	}
	return string(b)
}
