package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"

	"couchmatch/models"

	"github.com/valyala/fasthttp"
)

// ErrNoMatches is returned when the matching endpoint found nothing for an image
var ErrNoMatches = errors.New("no match data found")

// Match submits a quotation to the matching endpoint. Results of an image
// match carry a similarity score, budget-only results do not.
func (c *Client) Match(ctx context.Context, q models.Quotation) ([]models.Sofa, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("invalid quotation: %w", err)
	}

	body, contentType, err := quotationForm(q)
	if err != nil {
		return nil, err
	}

	budget := strconv.FormatFloat(q.Budget, 'f', -1, 64)
	req := fasthttp.AcquireRequest()
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType(contentType)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	req.SetRequestURI(c.baseURL + MatchingPath + "?budget=" + budget)
	req.SetBody(body)

	resp, err := c.do(ctx, req)
	if err != nil {
		var status *StatusError
		if errors.As(err, &status) && status.Code == fasthttp.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrNoMatches, status.Message)
		}
		return nil, fmt.Errorf("match quotation: %w", err)
	}

	return decodeMatches(resp)
}

func quotationForm(q models.Quotation) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"budget", strconv.FormatFloat(q.Budget, 'f', -1, 64)},
		{"quantity", strconv.Itoa(q.Quantity)},
		{"deliveryDate", q.DeliveryDate.Format(models.DateLayout)},
	}
	for _, field := range fields {
		if err := w.WriteField(field[0], field[1]); err != nil {
			return nil, "", fmt.Errorf("write form field %s: %w", field[0], err)
		}
	}

	if q.ImagePath != "" {
		if err := writeImage(w, q.ImagePath); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func writeImage(w *multipart.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("could not open image %s: %w", path, err)
	}
	defer f.Close()

	// Sniff the type so the server can reject non-images without decoding them
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("could not read image %s: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("could not read image %s: %w", path, err)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, filepath.Base(path)))
	header.Set("Content-Type", http.DetectContentType(head[:n]))

	part, err := w.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create image part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("could not read image %s: %w", path, err)
	}
	return nil
}

// decodeMatches accepts both a list of sofas and a list of {"sofa": ...}
func decodeMatches(body []byte) ([]models.Sofa, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	sofas := make([]models.Sofa, 0, len(raw))
	for _, item := range raw {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(item, &probe); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}

		var sofa models.Sofa
		target := item
		if wrapped, ok := probe["sofa"]; ok {
			target = wrapped
		}
		if err := json.Unmarshal(target, &sofa); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		sofas = append(sofas, sofa)
	}

	return sofas, nil
}
