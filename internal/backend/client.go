package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/microcart/internal/domain"
)

const (
	cartResource  = "/shop/cart"
	orderResource = "/shop/order"
	mailResource  = "/mail"

	defaultTimeout = 10 * time.Second
	// maxErrorBody ограничивает размер тела ответа, попадающего в ошибку.
	maxErrorBody = 512
)

// ClientOptions задаёт параметры HTTP-клиента backend.
type ClientOptions struct {
	HTTPClient *http.Client
	Logger     *log.Entry
	Timeout    time.Duration
	Retry      RetryConfig
}

// Option настраивает Client.
type Option func(*ClientOptions)

// WithHTTPClient подменяет HTTP-клиент (например, в тестах).
func WithHTTPClient(client *http.Client) Option {
	return func(opts *ClientOptions) {
		opts.HTTPClient = client
	}
}

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(opts *ClientOptions) {
		opts.Logger = logger
	}
}

// WithTimeout задаёт таймаут запросов по умолчанию.
func WithTimeout(timeout time.Duration) Option {
	return func(opts *ClientOptions) {
		opts.Timeout = timeout
	}
}

// Client — REST-клиент backend-сервиса корзин, заказов и почты.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Entry
	retry      RetryConfig
}

// NewClient создаёт клиент для backend по базовому URL.
func NewClient(baseURL string, options ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("backend url must be absolute: %q", baseURL)
	}

	opts := ClientOptions{Timeout: defaultTimeout, Retry: DefaultRetryConfig()}
	for _, option := range options {
		option(&opts)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "backend-client")
	}

	return &Client{
		baseURL:    strings.TrimRight(parsed.String(), "/"),
		httpClient: httpClient,
		logger:     logger,
		retry:      opts.Retry,
	}, nil
}

// FetchCart загружает корзину; 404 означает отсутствие корзины, а не ошибку.
func (c *Client) FetchCart(ctx context.Context, id string) (domain.Cart, bool, error) {
	var cart domain.Cart
	status, err := c.getJSON(ctx, cartResource+"/"+url.PathEscape(id), &cart)
	if err != nil {
		return domain.Cart{}, false, err
	}
	if status == http.StatusNotFound {
		return domain.Cart{}, false, nil
	}
	return cart, true, nil
}

// FetchOrder загружает оформленный заказ или возвращает ErrOrderNotFound.
func (c *Client) FetchOrder(ctx context.Context, id string) (domain.Cart, error) {
	var order domain.Cart
	status, err := c.getJSON(ctx, orderResource+"/"+url.PathEscape(id), &order)
	if err != nil {
		return domain.Cart{}, err
	}
	if status == http.StatusNotFound {
		return domain.Cart{}, domain.ErrOrderNotFound
	}
	return order, nil
}

// PersistCart отправляет корзину в backend (POST создаёт или перезаписывает).
func (c *Client) PersistCart(ctx context.Context, cart domain.Cart) error {
	_, err := c.postJSON(ctx, cartResource, cart)
	return err
}

// CreateOrder сохраняет заказ; id заказа — последний сегмент заголовка Location.
func (c *Client) CreateOrder(ctx context.Context, cart domain.Cart) (string, error) {
	resp, err := c.postJSON(ctx, orderResource, cart)
	if err != nil {
		return "", err
	}

	location := resp.Header.Get("Location")
	orderID := orderIDFromLocation(location)
	if orderID == "" {
		c.logger.WithField("location", location).Error("backend returned no order location")
		return "", fmt.Errorf("%w: create order: missing Location header", domain.ErrBackendUnavailable)
	}
	return orderID, nil
}

// DeleteCart удаляет корзину по id.
func (c *Client) DeleteCart(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, cartResource+"/"+url.PathEscape(id), nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrCartNotFound
	}
	return c.checkStatus(resp)
}

// SendPlainText отправляет письмо через почтовый endpoint backend:
// POST /mail/{from}/{to}/{subject} с телом text/plain в UTF-8.
func (c *Client) SendPlainText(ctx context.Context, mail domain.Mail) error {
	if mail.To == "" {
		return domain.ErrRecipientRequired
	}
	from := mail.From
	if from == "" {
		from = domain.AddressSelf
	}

	resource := mailResource +
		"/" + url.PathEscape(from) +
		"/" + url.PathEscape(mail.To) +
		"/" + url.PathEscape(mail.Subject)

	resp, err := c.do(ctx, http.MethodPost, resource, strings.NewReader(mail.Body), "text/plain; charset=UTF-8")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkStatus(resp)
}

// Ping проверяет, что backend отвечает (любой статус ниже 500).
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/", nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: ping: status %d", domain.ErrBackendUnavailable, resp.StatusCode)
	}
	return nil
}

// getJSON читает ресурс, повторяя запрос при сетевых ошибках и ответах 5xx.
func (c *Client) getJSON(ctx context.Context, resource string, target any) (int, error) {
	var status int
	err := withRetry(ctx, c.retry, c.logger, "GET "+resource, func() (bool, error) {
		var err error
		status, err = c.getJSONOnce(ctx, resource, target)
		return retryable(status, err), err
	})
	return status, err
}

func (c *Client) getJSONOnce(ctx context.Context, resource string, target any) (int, error) {
	resp, err := c.do(ctx, http.MethodGet, resource, nil, "")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, nil
	}
	if err := c.checkStatus(resp); err != nil {
		return resp.StatusCode, err
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s: %w", resource, err)
	}
	return resp.StatusCode, nil
}

func (c *Client) postJSON(ctx context.Context, resource string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", resource, err)
	}

	resp, err := c.do(ctx, http.MethodPost, resource, bytes.NewReader(body), "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, resource string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+resource, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, resource, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithFields(log.Fields{
			"method":   method,
			"resource": resource,
		}).Warn("backend request failed")
		return nil, fmt.Errorf("%s %s: %w", method, resource, err)
	}
	return resp, nil
}

// checkStatus превращает не-2xx ответ в ошибку ErrBackendUnavailable.
func (c *Client) checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	c.logger.WithFields(log.Fields{
		"method": resp.Request.Method,
		"url":    resp.Request.URL.String(),
		"status": resp.StatusCode,
	}).Warn("backend returned unexpected status")

	return fmt.Errorf("%w: %s %s: status %d: %s",
		domain.ErrBackendUnavailable,
		resp.Request.Method,
		resp.Request.URL.Path,
		resp.StatusCode,
		strings.TrimSpace(string(snippet)),
	)
}

// orderIDFromLocation возвращает последний непустой сегмент пути из Location.
func orderIDFromLocation(location string) string {
	if location == "" {
		return ""
	}
	parsed, err := url.Parse(location)
	if err != nil {
		return ""
	}
	base := path.Base(strings.TrimRight(parsed.Path, "/"))
	if base == "." || base == "/" {
		return ""
	}
	if unescaped, err := url.PathUnescape(base); err == nil {
		return unescaped
	}
	return base
}

var (
	_ domain.CartStore = (*Client)(nil)
	_ domain.Notifier  = (*Client)(nil)
)
