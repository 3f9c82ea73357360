package extraction

import "fmt"

// receiptExtractPrompt is shared by all LLM providers for the initial image
// extraction pass.
const receiptExtractPrompt = `You are analyzing a receipt or invoice image. Carefully read all text and extract the following information:

1. **Merchant Name**: The business name, usually the largest text at the top of the receipt.
2. **Date**: The transaction or invoice date, converted to ISO 8601 format (YYYY-MM-DD).
3. **Total Amount**: The final total or amount due, usually at the bottom, labeled "TOTAL" or similar. Extract only the numeric value (e.g. 42.75 for $42.75).
4. **Payment Method**: How it was paid if visible (e.g. Cash, Credit Card, Debit).
5. **Line Items**: Each purchased item with its cost, in the order printed.

Return ONLY valid JSON in this exact format:
{
  "merchant_name": "name of the business",
  "date": "YYYY-MM-DD",
  "total_amount": "number without currency symbols",
  "payment_method": "payment method if visible",
  "line_items": [
    {"description": "item name", "amount": "item cost as number"}
  ]
}

Important:
- Only include fields you can clearly read from the receipt
- If a field is unclear or not visible, use null
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// extractPromptFor appends a locale hint when the transport supplied one.
func extractPromptFor(locale string) string {
	if locale == "" {
		return receiptExtractPrompt
	}
	return fmt.Sprintf("%s\n\nThe receipt text may be written in the language with tag %q.", receiptExtractPrompt, locale)
}

// replyParsePrompt asks the model to interpret a free-text answer for exactly
// one named field. The model must not invent a canonical value the submitter
// did not provide.
func replyParsePrompt(field Field, text string, current Fields) string {
	return fmt.Sprintf(`Given this receipt data:
%s

The submitter was asked for the field %q.
Their reply: %q

If the reply answers the question, return the value to store, preserving the submitter's wording (only strip filler words, currency symbols and politeness). If the reply does not answer the question at all, return null.

Return ONLY valid JSON in this exact format, no other text:
{"value": "the value or null"}`, promptJSON(current), field, text)
}
