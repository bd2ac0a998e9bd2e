package health

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// CheckFunc は単一のヘルスチェック（成否, メッセージ）
type CheckFunc func() (bool, string)

// OllamaCheck はOllamaサーバーへの到達性を確認
func OllamaCheck(baseURL string, timeout time.Duration) CheckFunc {
	client := resty.New().SetTimeout(timeout)
	return func() (bool, string) {
		resp, err := client.R().Get(baseURL)
		if err != nil {
			return false, fmt.Sprintf("unreachable: %v", err)
		}
		if resp.StatusCode() != 200 {
			return false, fmt.Sprintf("status %d", resp.StatusCode())
		}
		return true, "ok"
	}
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// OllamaModelsCheck は必要なモデルがpull済みかを確認
// "llama3" のようにタグなしの名前は ":latest" として扱う
func OllamaModelsCheck(baseURL string, timeout time.Duration, required []string) CheckFunc {
	client := resty.New().SetTimeout(timeout)
	tagsURL := strings.TrimSuffix(baseURL, "/") + "/api/tags"

	return func() (bool, string) {
		var tags ollamaTagsResponse
		resp, err := client.R().SetResult(&tags).Get(tagsURL)
		if err != nil {
			return false, fmt.Sprintf("unreachable: %v", err)
		}
		if resp.IsError() {
			return false, fmt.Sprintf("status %d", resp.StatusCode())
		}

		available := make(map[string]bool, len(tags.Models))
		for _, m := range tags.Models {
			available[normalizeModel(m.Name)] = true
		}

		var missing []string
		for _, name := range required {
			if !available[normalizeModel(name)] {
				missing = append(missing, name)
			}
		}

		if len(missing) > 0 {
			return false, fmt.Sprintf("not pulled: %s", strings.Join(missing, ", "))
		}
		return true, fmt.Sprintf("%d/%d models ok", len(required), len(required))
	}
}

// APIKeyCheck はホスト型プロバイダーのAPIキーが設定済みかを確認（通信はしない）
func APIKeyCheck(provider, apiKey string) CheckFunc {
	return func() (bool, string) {
		if strings.TrimSpace(apiKey) == "" {
			return false, fmt.Sprintf("%s API key not configured", provider)
		}
		return true, "configured"
	}
}

func normalizeModel(name string) string {
	if !strings.Contains(name, ":") {
		return name + ":latest"
	}
	return name
}
