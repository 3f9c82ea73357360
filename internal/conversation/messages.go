package conversation

import (
	"fmt"
	"strings"

	"github.com/zombor/expense-bot/internal/extraction"
	"github.com/zombor/expense-bot/internal/receipt"
)

// All outbound copy lives here, in Spanish and English. Spanish is the
// default. Cost center is an internal field name; submitters hear
// "property" / "propiedad".

const defaultLanguage = "es"

var spanishWords = []string{
	"hola", "sí", "si", "no", "gracias", "por favor", "qué", "cuál", "para", "de", "la", "el", "un", "una",
}

// detectLanguage guesses es/en from a text message. Any Spanish stopword hit
// means Spanish; the default is Spanish.
func detectLanguage(text string) string {
	lower := " " + strings.ToLower(text) + " "
	for _, word := range spanishWords {
		if strings.Contains(lower, " "+word+" ") {
			return "es"
		}
	}
	if strings.TrimSpace(text) == "" {
		return defaultLanguage
	}
	return "en"
}

func pick(lang, es, en string) string {
	if lang == "en" {
		return en
	}
	return es
}

func msgProcessing(lang string) string {
	return pick(lang, "🔍 Procesando tu recibo...", "🔍 Processing your receipt...")
}

func msgSaving(lang string) string {
	return pick(lang, "💾 Guardando recibo...", "💾 Saving receipt...")
}

func msgGreeting(lang string) string {
	return pick(lang,
		"¡Hola! Envíame la foto de un recibo y lo registro por ti. 📸",
		"Hi! Send me a photo of a receipt and I'll file it for you. 📸")
}

func msgAskField(field extraction.Field, lang string) string {
	switch field {
	case extraction.FieldCategory:
		return pick(lang,
			"¿A qué categoría corresponde este gasto? (Mantenimiento, Servicios, Reparaciones, Insumos...)",
			"What category is this expense? (Maintenance, Utilities, Repairs, Supplies...)")
	case extraction.FieldCostCenter:
		return pick(lang,
			"¿A qué propiedad o unidad corresponde?",
			"Which property or unit is this for?")
	}
	return pick(lang,
		fmt.Sprintf("¿Cuál es el valor de %s?", field),
		fmt.Sprintf("What is the value for %s?", field))
}

func msgReask(field extraction.Field, lang string) string {
	return pick(lang, "No entendí esa respuesta. ", "I didn't catch that. ") + msgAskField(field, lang)
}

func msgDuplicate(prior *receipt.Record, lang string) string {
	if prior != nil && prior.Merchant != "" {
		return pick(lang,
			fmt.Sprintf("⚠️ Este recibo ya fue registrado (%s, %s por $%s). ¿Quieres guardarlo de todos modos? (sí/no)",
				prior.Merchant, prior.Date, prior.TotalAmount),
			fmt.Sprintf("⚠️ This receipt was already filed (%s, %s for $%s). Save it anyway? (yes/no)",
				prior.Merchant, prior.Date, prior.TotalAmount))
	}
	return pick(lang,
		"⚠️ Este recibo ya fue registrado. ¿Quieres guardarlo de todos modos? (sí/no)",
		"⚠️ This receipt was already filed. Save it anyway? (yes/no)")
}

func msgDuplicateReask(lang string) string {
	return pick(lang,
		"Responde sí o no: ¿guardo el recibo duplicado?",
		"Please answer yes or no: should I save the duplicate receipt?")
}

func msgDuplicateCancelled(lang string) string {
	return pick(lang,
		"Entendido, descarté el recibo duplicado. Envíame otro cuando quieras.",
		"Got it, I discarded the duplicate receipt. Send me another anytime.")
}

func msgExtractionFailed(lang string) string {
	return pick(lang,
		"😔 No pude leer ese recibo. ¿Puedes enviar la foto de nuevo?",
		"😔 I couldn't read that receipt. Can you send the photo again?")
}

func msgUploadFailed(lang string) string {
	return pick(lang,
		"😔 No pude subir la imagen del recibo. Envíala de nuevo para reintentar.",
		"😔 I couldn't upload the receipt image. Send it again to retry.")
}

func msgAppendFailed(lang string) string {
	return pick(lang,
		"😔 No pude registrar el recibo en la planilla. Envíalo de nuevo para reintentar.",
		"😔 I couldn't add the receipt to the sheet. Send it again to retry.")
}

// replySentiment classifies a duplicate-confirmation reply.
type replySentiment int

const (
	replyUnknown replySentiment = iota
	replyYes
	replyNo
)

func classifyReply(text string) replySentiment {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "yes", "y", "si", "sí":
		return replyYes
	case "no", "n":
		return replyNo
	}
	return replyUnknown
}
