package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strconv"
	"strings"

	"fieldops/fieldtrack/models"
)

// UploadEvidence posts a photo-evidence file as multipart form data. Area and
// formID are optional metadata; zero values are omitted.
func (c *Client) UploadEvidence(ctx context.Context, filename string, photo io.Reader, area string, formID int64) (*models.EvidenceUploadResponse, error) {
	token, ok := c.tokens.Token()
	if !ok {
		return nil, ErrNoToken
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="foto"; filename=%q`, filepath.Base(filename)))
	header.Set("Content-Type", photoContentType(filename))
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create photo part: %w", err)
	}
	if _, err := io.Copy(part, photo); err != nil {
		return nil, fmt.Errorf("failed to buffer photo: %w", err)
	}

	if area != "" {
		if err := w.WriteField("area", area); err != nil {
			return nil, fmt.Errorf("failed to write area field: %w", err)
		}
	}
	if formID != 0 {
		if err := w.WriteField("formulario_id", strconv.FormatInt(formID, 10)); err != nil {
			return nil, fmt.Errorf("failed to write formulario_id field: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/evidencias/subir-foto", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.uploader.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to upload evidence: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from evidence upload", resp.StatusCode)
	}

	var out models.EvidenceUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}
	return &out, nil
}

// DeleteEvidence removes a previously uploaded photo by its server-side path.
func (c *Client) DeleteEvidence(ctx context.Context, ruta string) error {
	token, ok := c.tokens.Token()
	if !ok {
		return ErrNoToken
	}

	body, err := json.Marshal(map[string]string{"ruta": ruta})
	if err != nil {
		return fmt.Errorf("failed to encode delete payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/evidencias/eliminar-foto", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete evidence: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from evidence delete", resp.StatusCode)
	}

	var out models.EvidenceDeleteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("failed to decode delete response: %w", err)
	}
	if !out.Success {
		return fmt.Errorf("server refused to delete %q", ruta)
	}
	return nil
}

// PhotoURL resolves a stored path to a fetchable URL. Absolute URLs pass through.
func (c *Client) PhotoURL(ruta string) string {
	if strings.HasPrefix(ruta, "http://") || strings.HasPrefix(ruta, "https://") {
		return ruta
	}
	base := strings.TrimSuffix(c.baseURL, "/api")
	return base + "/storage/" + ruta
}

func photoContentType(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return "image/jpeg"
}
