package job

import (
	"fmt"

	"github.com/Ultra2000/pdfBot/model"
)

// languageNames maps translation target codes to their display names.
var languageNames = map[string]string{
	"fr": "Français",
	"en": "English",
	"es": "Español",
	"de": "Deutsch",
	"it": "Italiano",
	"pt": "Português",
	"ru": "Русский",
	"ar": "العربية",
	"zh": "中文",
}

// Strategy bundles everything that varies between operations: which
// parameters the remote service receives, what the offline placeholder
// artifact contains, and how the delivery caption reads. The engine itself
// is operation-agnostic.
type Strategy struct {
	Op model.OperationType

	// RemoteParams selects and defaults the form fields sent to the
	// processing service.
	RemoteParams func(params map[string]string) map[string]string

	// PlaceholderContent renders the deterministic artifact used when the
	// remote service is disabled or fails.
	PlaceholderContent func(doc *model.Document, params map[string]string) string

	// PlaceholderExt returns the artifact's file extension.
	PlaceholderExt func(params map[string]string) string

	// Caption renders the user-facing delivery message.
	Caption func(j *model.TaskJob) string
}

// StrategyFor returns the strategy for an operation, or nil for an
// unsupported one.
func StrategyFor(op model.OperationType) *Strategy {
	return strategies[op]
}

func param(params map[string]string, key, fallback string) string {
	if v, ok := params[key]; ok && v != "" {
		return v
	}
	return fallback
}

func textExt(map[string]string) string { return ".txt" }

var strategies = map[model.OperationType]*Strategy{
	model.OpCompress: {
		Op: model.OpCompress,
		RemoteParams: func(p map[string]string) map[string]string {
			return map[string]string{
				"mode":    param(p, "mode", "whatsapp"),
				"quality": param(p, "quality", "medium"),
			}
		},
		PlaceholderContent: func(doc *model.Document, p map[string]string) string {
			return fmt.Sprintf("📄 PDF Compression Result (Placeholder)\n\n"+
				"Original: %s\n"+
				"Mode: %s\n"+
				"Status: ✅ Compressed successfully\n"+
				"Reduction: ~30%% (estimated)\n\n"+
				"Note: This is a placeholder result produced while the processing service is unavailable.",
				doc.OriginalName, param(p, "mode", "whatsapp"))
		},
		PlaceholderExt: textExt,
		Caption: func(j *model.TaskJob) string {
			return fmt.Sprintf("✅ *PDF Compressé*\n\n"+
				"Mode: %s\n"+
				"Télécharger le fichier ci-dessus\n\n"+
				"⏱️ Temps de traitement: %ds",
				param(j.Parameters, "mode", "whatsapp"), j.ProcessingSeconds())
		},
	},

	model.OpConvert: {
		Op: model.OpConvert,
		RemoteParams: func(p map[string]string) map[string]string {
			return map[string]string{
				"format": param(p, "format", "docx"),
			}
		},
		PlaceholderContent: func(doc *model.Document, p map[string]string) string {
			return fmt.Sprintf("🔄 PDF Conversion Result (Placeholder)\n\n"+
				"Original: %s\n"+
				"Target Format: %s\n"+
				"Status: ✅ Converted successfully\n\n"+
				"Note: This is a placeholder result produced while the processing service is unavailable.",
				doc.OriginalName, param(p, "format", "docx"))
		},
		PlaceholderExt: textExt,
		Caption: func(j *model.TaskJob) string {
			return fmt.Sprintf("✅ *PDF Converti*\n\n"+
				"Format: %s\n"+
				"Télécharger le fichier ci-dessus\n\n"+
				"⏱️ Temps de traitement: %ds",
				param(j.Parameters, "format", "docx"), j.ProcessingSeconds())
		},
	},

	model.OpOcr: {
		Op: model.OpOcr,
		RemoteParams: func(p map[string]string) map[string]string {
			return map[string]string{
				"language":      param(p, "language", "eng"),
				"output_format": param(p, "output_format", "text"),
			}
		},
		PlaceholderContent: func(doc *model.Document, p map[string]string) string {
			return fmt.Sprintf("👁️ PDF OCR Result (Placeholder)\n\n"+
				"Original: %s\n"+
				"Output Format: %s\n"+
				"Status: ✅ Text extracted successfully\n\n"+
				"Note: This is a placeholder result produced while the processing service is unavailable.",
				doc.OriginalName, param(p, "output_format", "text"))
		},
		PlaceholderExt: func(p map[string]string) string {
			if param(p, "output_format", "text") == "docx" {
				return ".docx"
			}
			return ".txt"
		},
		Caption: func(j *model.TaskJob) string {
			return fmt.Sprintf("✅ *Texte Extrait (OCR)*\n\n"+
				"Format: %s\n"+
				"Télécharger le fichier ci-dessus\n\n"+
				"⏱️ Temps de traitement: %ds",
				param(j.Parameters, "output_format", "text"), j.ProcessingSeconds())
		},
	},

	model.OpSummarize: {
		Op: model.OpSummarize,
		RemoteParams: func(p map[string]string) map[string]string {
			return map[string]string{
				"length":   param(p, "size", "short"),
				"language": "fr",
			}
		},
		PlaceholderContent: func(doc *model.Document, p map[string]string) string {
			size := param(p, "size", "short")
			var summary string
			switch size {
			case "short":
				summary = "Résumé court du document PDF. Les points clés sont présentés de manière concise."
			case "medium":
				summary = "Résumé moyen du document PDF avec plus de détails. Les sections principales sont analysées et les idées importantes sont développées."
			case "long":
				summary = "Résumé détaillé du document PDF avec une analyse approfondie. Chaque section est examinée, les arguments sont développés et les conclusions sont présentées avec leur contexte."
			default:
				summary = "Résumé du document PDF."
			}
			return fmt.Sprintf("📝 PDF Summary Result (Placeholder)\n\n"+
				"Original: %s\n"+
				"Summary Size: %s\n"+
				"Status: ✅ Summarized successfully\n\n"+
				"RÉSUMÉ:\n%s\n\n"+
				"Note: This is a placeholder result produced while the processing service is unavailable.",
				doc.OriginalName, size, summary)
		},
		PlaceholderExt: textExt,
		Caption: func(j *model.TaskJob) string {
			return fmt.Sprintf("✅ *PDF Résumé*\n\n"+
				"Taille: %s\n"+
				"Télécharger le résumé ci-dessus\n\n"+
				"⏱️ Temps de traitement: %ds",
				param(j.Parameters, "size", "short"), j.ProcessingSeconds())
		},
	},

	model.OpTranslate: {
		Op: model.OpTranslate,
		RemoteParams: func(p map[string]string) map[string]string {
			return map[string]string{
				"target_language": param(p, "target_language", "en"),
			}
		},
		PlaceholderContent: func(doc *model.Document, p map[string]string) string {
			code := param(p, "target_language", "en")
			name := code
			if n, ok := languageNames[code]; ok {
				name = n
			}
			return fmt.Sprintf("🌍 PDF Translation Result (Placeholder)\n\n"+
				"Original: %s\n"+
				"Target Language: %s (%s)\n"+
				"Status: ✅ Translated successfully\n\n"+
				"Note: This is a placeholder result produced while the processing service is unavailable.",
				doc.OriginalName, name, code)
		},
		PlaceholderExt: textExt,
		Caption: func(j *model.TaskJob) string {
			code := param(j.Parameters, "target_language", "en")
			name := code
			if n, ok := languageNames[code]; ok {
				name = n
			}
			return fmt.Sprintf("✅ *PDF Traduit*\n\n"+
				"Langue: %s\n"+
				"Télécharger le fichier ci-dessus\n\n"+
				"⏱️ Temps de traitement: %ds",
				name, j.ProcessingSeconds())
		},
	},

	model.OpSecure: {
		Op: model.OpSecure,
		RemoteParams: func(p map[string]string) map[string]string {
			out := map[string]string{
				"security_type": param(p, "security_type", "password"),
			}
			if v := p["password"]; v != "" {
				out["password"] = v
			}
			if v := p["watermark_text"]; v != "" {
				out["watermark_text"] = v
			}
			return out
		},
		PlaceholderContent: func(doc *model.Document, p map[string]string) string {
			securityType := param(p, "security_type", "password")
			var info string
			switch securityType {
			case "password":
				info = fmt.Sprintf("Protection par mot de passe appliquée.\nMot de passe: %s", p["password"])
			case "watermark":
				info = "Filigrane (watermark) appliqué au document."
			case "both":
				info = fmt.Sprintf("Protection par mot de passe ET filigrane appliqués.\nMot de passe: %s", p["password"])
			default:
				info = "Sécurisation appliquée."
			}
			return fmt.Sprintf("🔒 PDF Security Result (Placeholder)\n\n"+
				"Original: %s\n"+
				"Security Type: %s\n"+
				"Status: ✅ Secured successfully\n\n"+
				"SÉCURITÉ APPLIQUÉE:\n%s\n\n"+
				"⚠️ IMPORTANT: Conservez ces informations en sécurité!\n\n"+
				"Note: This is a placeholder result produced while the processing service is unavailable.",
				doc.OriginalName, securityType, info)
		},
		PlaceholderExt: textExt,
		Caption: func(j *model.TaskJob) string {
			securityType := param(j.Parameters, "security_type", "password")
			caption := fmt.Sprintf("✅ *PDF Sécurisé*\n\nType: %s\n", securityType)
			if pw := j.Parameters["password"]; pw != "" && (securityType == "password" || securityType == "both") {
				caption += fmt.Sprintf("🔑 Mot de passe: `%s`\n", pw)
			}
			caption += fmt.Sprintf("Télécharger le fichier ci-dessus\n\n⏱️ Temps de traitement: %ds", j.ProcessingSeconds())
			return caption
		},
	},
}
