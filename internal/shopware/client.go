package shopware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"shopware_reports/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.shop-ware.com"
	defaultPerPage = 100
)

var (
	ErrMissingTenantID    = errors.New("shopware tenant id is required")
	ErrMissingCredentials = errors.New("shopware api credentials are required")
	ErrUnauthorized       = errors.New("shopware unauthorized")
	ErrRateLimited        = errors.New("shopware rate limited")
)

type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("shopware api error: %s", e.Status)
	}
	return fmt.Sprintf("shopware api error: %s: %s", e.Status, e.Body)
}

type Client struct {
	http     *resty.Client
	tenantID string
	perPage  int
	logger   *zap.Logger
}

func NewClient(cfg config.Config, logger *zap.Logger) *Client {
	baseURL := strings.TrimSpace(cfg.APIBaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetHeader("X-Api-Partner-Id", cfg.APIPartnerID).
		SetHeader("X-Api-Secret", cfg.APISecret).
		SetTimeout(cfg.Timeout).
		SetRetryCount(1).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp != nil && resp.StatusCode() == http.StatusTooManyRequests
		})

	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}

	return &Client{
		http:     httpClient,
		tenantID: strings.TrimSpace(cfg.TenantID),
		perPage:  perPage,
		logger:   logger.Named("shopware"),
	}
}

// RepairOrderFilter narrows ListRepairOrders. Zero times and the empty
// status are omitted from the request.
type RepairOrderFilter struct {
	ClosedAfter  time.Time
	ClosedBefore time.Time
	Status       string
}

func (f RepairOrderFilter) query() map[string]string {
	q := map[string]string{}
	if !f.ClosedAfter.IsZero() {
		q["closed_after"] = f.ClosedAfter.UTC().Format(time.RFC3339)
	}
	if !f.ClosedBefore.IsZero() {
		q["closed_before"] = f.ClosedBefore.UTC().Format(time.RFC3339)
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	return q
}

func (c *Client) ListAppointments(ctx context.Context, updatedAfter time.Time) ([]Appointment, error) {
	query := map[string]string{
		"updated_after": updatedAfter.UTC().Format(time.RFC3339),
	}
	return fetchAll[Appointment](ctx, c, c.tenantPath("appointments"), query)
}

func (c *Client) ListRepairOrders(ctx context.Context, filter RepairOrderFilter) ([]RepairOrder, error) {
	return fetchAll[RepairOrder](ctx, c, c.tenantPath("repair_orders"), filter.query())
}

func (c *Client) ListPayments(ctx context.Context, updatedAfter time.Time) ([]Payment, error) {
	query := map[string]string{
		"updated_after": updatedAfter.UTC().Format(time.RFC3339),
	}
	return fetchAll[Payment](ctx, c, c.tenantPath("payments"), query)
}

func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	if err := c.checkAccess(); err != nil {
		return nil, err
	}
	var resp pagedResponse[Category]
	if err := c.doGet(ctx, c.tenantPath("categories"), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (c *Client) GetStaffMember(ctx context.Context, id int64) (StaffMember, error) {
	if err := c.checkAccess(); err != nil {
		return StaffMember{}, err
	}
	var member StaffMember
	path := c.tenantPath("staff_members/" + strconv.FormatInt(id, 10))
	if err := c.doGet(ctx, path, nil, &member); err != nil {
		return StaffMember{}, err
	}
	return member, nil
}

func (c *Client) GetInventoryItem(ctx context.Context, id int64) (InventoryItem, error) {
	if err := c.checkAccess(); err != nil {
		return InventoryItem{}, err
	}
	var item InventoryItem
	path := c.tenantPath("inventory_items/" + strconv.FormatInt(id, 10))
	if err := c.doGet(ctx, path, nil, &item); err != nil {
		return InventoryItem{}, err
	}
	return item, nil
}

// IsTire resolves a part's tire classification from its inventory item.
func (c *Client) IsTire(ctx context.Context, inventoryItemID int64) (bool, error) {
	item, err := c.GetInventoryItem(ctx, inventoryItemID)
	if err != nil {
		return false, err
	}
	return item.PartType == "Tire" || item.ReportingCategory == "Tires", nil
}

// fetchAll drains every page of a list endpoint. Results are appended
// before the total_pages check so the last page is never dropped; a
// response without total_pages terminates after one page. Any page
// error aborts the whole fetch with no partial result.
func fetchAll[T any](ctx context.Context, c *Client, path string, query map[string]string) ([]T, error) {
	if err := c.checkAccess(); err != nil {
		return nil, err
	}

	var all []T
	for page := 1; ; page++ {
		q := make(map[string]string, len(query)+2)
		for k, v := range query {
			q[k] = v
		}
		q["page"] = strconv.Itoa(page)
		q["per_page"] = strconv.Itoa(c.perPage)

		var resp pagedResponse[T]
		if err := c.doGet(ctx, path, q, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Results...)
		c.logger.Debug("page fetched",
			zap.String("path", path),
			zap.Int("page", page),
			zap.Int("total_pages", resp.TotalPages),
			zap.Int("records", len(resp.Results)),
		)

		if page >= resp.TotalPages {
			break
		}
	}
	return all, nil
}

func (c *Client) doGet(ctx context.Context, path string, query map[string]string, result any) error {
	req := c.http.R().SetContext(ctx).SetResult(result)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}

	resp, err := req.Get(path)
	if err != nil {
		return fmt.Errorf("shopware request: %w", err)
	}
	if resp.IsError() {
		return apiErrorFromResponse(resp)
	}
	return nil
}

func (c *Client) tenantPath(resource string) string {
	return fmt.Sprintf("/api/v1/tenants/%s/%s", c.tenantID, resource)
}

func (c *Client) checkAccess() error {
	if c.http.Header.Get("X-Api-Partner-Id") == "" || c.http.Header.Get("X-Api-Secret") == "" {
		return ErrMissingCredentials
	}
	if c.tenantID == "" {
		return ErrMissingTenantID
	}
	return nil
}

func apiErrorFromResponse(resp *resty.Response) error {
	body := strings.TrimSpace(resp.String())
	apiErr := &APIError{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		Body:       body,
	}

	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Error())
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Error())
	default:
		return apiErr
	}
}
