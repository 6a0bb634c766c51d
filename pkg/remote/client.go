// Package remote implements the record store client against the remote REST API
package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-resty/resty/v2"

	"github.com/userdeck/userdeck/pkg/config"
	"github.com/userdeck/userdeck/pkg/errors"
	"github.com/userdeck/userdeck/pkg/interfaces"
	"github.com/userdeck/userdeck/pkg/types"
)

// Client implements interfaces.RecordStore over HTTP
type Client struct {
	client  *resty.Client
	config  *config.RemoteConfig
	logger  interfaces.Logger
	retries uint
}

// avatarResponse is the upload endpoint's response body
type avatarResponse struct {
	AvatarURL string `json:"avatar_url"`
}

// NewClient creates a new remote record store client
func NewClient(cfg *config.RemoteConfig, log interfaces.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("remote base URL is required")
	}

	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("User-Agent", "userdeck/1.0")
	if cfg.APIToken != "" {
		client.SetAuthToken(cfg.APIToken)
	}

	retries := uint(cfg.RetryCount)
	if retries == 0 {
		retries = 1 // retry.Do requires at least one attempt
	}

	return &Client{
		client:  client,
		config:  cfg,
		logger:  log,
		retries: retries,
	}, nil
}

// List retrieves all records. Read failures are retried with backoff.
func (c *Client) List(ctx context.Context) (types.RecordList, error) {
	var records types.RecordList

	err := retry.Do(
		func() error {
			var page types.RecordList
			response, reqErr := c.client.R().
				SetContext(ctx).
				SetResult(&page).
				Get("/users")
			if reqErr != nil {
				return reqErr
			}
			if response.StatusCode() != http.StatusOK {
				return fmt.Errorf("HTTP %d: %s", response.StatusCode(), response.String())
			}
			records = page
			return nil
		},
		retry.Attempts(c.retries),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
	)
	if err != nil {
		return nil, errors.NewRemoteError("failed to list records", err)
	}

	c.logger.Debug("Listed remote records", map[string]interface{}{"count": len(records)})
	return records, nil
}

// Get retrieves a single record by ID
func (c *Client) Get(ctx context.Context, id string) (*types.Record, error) {
	var record types.Record

	err := retry.Do(
		func() error {
			response, reqErr := c.client.R().
				SetContext(ctx).
				SetResult(&record).
				Get("/users/" + id)
			if reqErr != nil {
				return reqErr
			}
			if response.StatusCode() == http.StatusNotFound {
				return retry.Unrecoverable(errors.NewNotFoundError("record"))
			}
			if response.StatusCode() != http.StatusOK {
				return fmt.Errorf("HTTP %d: %s", response.StatusCode(), response.String())
			}
			return nil
		},
		retry.Attempts(c.retries),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
	)
	if err != nil {
		if udErr := errors.GetUserdeckError(err); udErr != nil {
			return nil, udErr
		}
		return nil, errors.NewRemoteError(fmt.Sprintf("failed to fetch record %s", id), err)
	}

	return &record, nil
}

// Create creates a new record
func (c *Client) Create(ctx context.Context, record types.Record) (*types.Record, error) {
	var created types.Record

	response, err := c.client.R().
		SetContext(ctx).
		SetBody(record).
		SetResult(&created).
		Post("/users")
	if err != nil {
		return nil, errors.NewRemoteError("failed to create record", err)
	}
	if response.StatusCode() != http.StatusCreated && response.StatusCode() != http.StatusOK {
		return nil, errors.NewRemoteError(
			fmt.Sprintf("create rejected: HTTP %d", response.StatusCode()), nil)
	}

	c.logger.Info("Record created", map[string]interface{}{"record_id": created.ID})
	return &created, nil
}

// Update updates an existing record
func (c *Client) Update(ctx context.Context, record types.Record) (*types.Record, error) {
	if record.ID == "" {
		return nil, errors.NewMissingFieldError("id")
	}

	var updated types.Record
	response, err := c.client.R().
		SetContext(ctx).
		SetBody(record).
		SetResult(&updated).
		Put("/users/" + record.ID)
	if err != nil {
		return nil, errors.NewRemoteError(fmt.Sprintf("failed to update record %s", record.ID), err)
	}
	if response.StatusCode() == http.StatusNotFound {
		return nil, errors.NewNotFoundError("record")
	}
	if response.StatusCode() != http.StatusOK {
		return nil, errors.NewRemoteError(
			fmt.Sprintf("update rejected: HTTP %d", response.StatusCode()), nil)
	}

	return &updated, nil
}

// Delete deletes a record by ID. No automatic retry: the commit loop reports
// each failure and the operator re-deletes manually if needed.
func (c *Client) Delete(ctx context.Context, id string) error {
	response, err := c.client.R().
		SetContext(ctx).
		Delete("/users/" + id)
	if err != nil {
		return errors.NewDeleteFailedError(id, err)
	}

	switch response.StatusCode() {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return errors.NewNotFoundError("record").WithDetail("record_id", id)
	default:
		return errors.NewDeleteFailedError(id,
			fmt.Errorf("HTTP %d: %s", response.StatusCode(), response.String()))
	}
}

// UploadAvatar uploads an avatar image for a record via multipart form
func (c *Client) UploadAvatar(ctx context.Context, id, filename string, content io.Reader) (string, error) {
	var result avatarResponse

	response, err := c.client.R().
		SetContext(ctx).
		SetFileReader("avatar", filename, content).
		SetResult(&result).
		Post("/users/" + id + "/avatar")
	if err != nil {
		return "", errors.NewRemoteError(fmt.Sprintf("failed to upload avatar for %s", id), err)
	}
	if response.StatusCode() == http.StatusNotFound {
		return "", errors.NewNotFoundError("record")
	}
	if response.StatusCode() != http.StatusOK && response.StatusCode() != http.StatusCreated {
		return "", errors.NewRemoteError(
			fmt.Sprintf("avatar upload rejected: HTTP %d", response.StatusCode()), nil)
	}

	c.logger.Info("Avatar uploaded", map[string]interface{}{
		"record_id": id,
		"filename":  filename,
	})
	return result.AvatarURL, nil
}
