package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/troupehq/troupe/internal/plugin"
)

const (
	imageGenModel   = "flux-dev"
	imageGenSize    = "1024x1024"
	imageGenTimeout = 2 * time.Minute
)

// ImageGen asks the configured OpenAI-compatible endpoint to render an
// image for the stripped message text. The generated URL is returned both
// as a prompt note and under "image_url", which the pipeline lifts into
// the outgoing attachment set.
func ImageGen() plugin.Plugin {
	client := &http.Client{Timeout: imageGenTimeout}
	return plugin.Func{
		PluginName:     "imagegen",
		PluginTriggers: []string{"image>", "img>", "generate_image>"},
		Run: func(ctx context.Context, inv plugin.Invocation) (map[string]string, error) {
			prompt := inv.Message.Content
			for _, marker := range []string{"generate_image>", "image>", "img>"} {
				prompt = strings.ReplaceAll(prompt, marker, "")
			}
			prompt = strings.TrimSpace(prompt)

			gen := inv.Settings.Generation()
			if gen.APIKey == "" {
				return map[string]string{"image": "[No AI Gen Token Provided]"}, nil
			}

			imageURL, err := generateImage(ctx, client, gen.Endpoint, gen.APIKey, prompt)
			if err != nil {
				return map[string]string{
					"image": fmt.Sprintf("[System Note: Image generation failed: %v]", err),
				}, nil
			}
			return map[string]string{
				"image":     fmt.Sprintf("[System Note: Image generated for prompt '%s':\n%s]", prompt, imageURL),
				"image_url": imageURL,
			}, nil
		},
	}
}

func generateImage(ctx context.Context, client *http.Client, endpoint, token, prompt string) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"model":           imageGenModel,
		"prompt":          prompt,
		"n":               1,
		"size":            imageGenSize,
		"response_format": "url",
	})
	if err != nil {
		return "", err
	}

	url := strings.TrimRight(endpoint, "/") + "/images/generations"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("image API error (%d): %s", resp.StatusCode, string(body))
	}

	var out struct {
		Data []struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Data) == 0 || out.Data[0].URL == "" {
		return "", fmt.Errorf("image API returned no url")
	}
	return out.Data[0].URL, nil
}
