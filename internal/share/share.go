package share

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// CardData is the minimal analysis summary embedded in a shareable link
type CardData struct {
	FullName     string `json:"fullName"`
	Summary      string `json:"summary"`
	OverallScore int    `json:"overallScore"`
	Language     string `json:"language"`
	Stars        int    `json:"stars"`
}

// maxSummaryChars bounds the encoded payload so share URLs stay well
// under common URL length limits
const maxSummaryChars = 280

// GenerateShareURL encodes the card data into a shareable link under the
// public base URL. Long summaries are truncated before encoding; the
// truncation is the only lossy step.
func GenerateShareURL(base string, data CardData) (string, error) {
	if data.FullName == "" {
		return "", fmt.Errorf("share data missing repository name")
	}

	if len(data.Summary) > maxSummaryChars {
		data.Summary = data.Summary[:maxSummaryChars]
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encoding share data: %w", err)
	}

	encoded := base64.RawURLEncoding.EncodeToString(raw)
	return fmt.Sprintf("%s/share?d=%s", strings.TrimRight(base, "/"), encoded), nil
}

// ParseShareData decodes the card data from a share URL produced by
// GenerateShareURL
func ParseShareData(shareURL string) (CardData, error) {
	var data CardData

	u, err := url.Parse(shareURL)
	if err != nil {
		return data, fmt.Errorf("parsing share url: %w", err)
	}

	encoded := u.Query().Get("d")
	if encoded == "" {
		return data, fmt.Errorf("share url missing payload")
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return data, fmt.Errorf("decoding share payload: %w", err)
	}

	if err := json.Unmarshal(raw, &data); err != nil {
		return data, fmt.Errorf("parsing share payload: %w", err)
	}

	return data, nil
}
