package dragdrop

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gofrs/uuid"
)

// APIError is a non-2xx answer from the board API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("board api: %d %s", e.StatusCode, e.Message)
}

// HTTPBoardClient talks to the /api/v1 board routes with a bearer token.
type HTTPBoardClient struct {
	BaseURL string
	Bearer  string
	HTTP    *http.Client
}

func NewHTTPBoardClient(baseURL, bearer string) *HTTPBoardClient {
	return &HTTPBoardClient{
		BaseURL: baseURL,
		Bearer:  bearer,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *HTTPBoardClient) ReorderColumn(ctx context.Context, columnID uuid.UUID, position int) (ReorderResult, error) {
	var result ReorderResult
	body := map[string]int{"position": position}
	err := c.putJSON(ctx, "/api/v1/columns/"+columnID.String()+"/position", body, &result)
	return result, err
}

func (c *HTTPBoardClient) ReorderTask(ctx context.Context, taskID uuid.UUID, move TaskMove) error {
	return c.putJSON(ctx, "/api/v1/tasks/"+taskID.String()+"/reorder", move, nil)
}

func (c *HTTPBoardClient) putJSON(ctx context.Context, path string, body, out any) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(body); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.BaseURL+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.Bearer)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error   string `json:"error"`
			Details string `json:"details"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		msg := apiErr.Error
		if apiErr.Details != "" {
			msg += ": " + apiErr.Details
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return err
		}
	}
	return nil
}
