package admin

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"replication-connector/internal/replication/domain/repository"
	apperrors "replication-connector/internal/shared/errors"
	"replication-connector/internal/shared/logger"
)

const (
	bucketsPath       = "/pools/default/buckets"
	defaultBucketType = "couchbase"
	defaultTimeout    = 30 * time.Second
)

// HTTPCollectionAdmin manages collections through the cluster REST API using
// operator credentials.
type HTTPCollectionAdmin struct {
	client     *fasthttp.Client
	baseURL    string
	authHeader string
	bucketType string
	timeout    time.Duration
	logger     logger.Logger
}

var _ repository.CollectionAdmin = (*HTTPCollectionAdmin)(nil)

// Options configures an HTTPCollectionAdmin
type Options struct {
	BaseURL    string
	Username   string
	Password   string
	BucketType string
	Timeout    time.Duration
}

// errorResponse is the body the cluster returns on a rejected create
type errorResponse struct {
	Errors map[string]string `json:"errors"`
}

// NewHTTPCollectionAdmin creates a REST admin client
func NewHTTPCollectionAdmin(opts Options, log logger.Logger) *HTTPCollectionAdmin {
	if opts.BucketType == "" {
		opts.BucketType = defaultBucketType
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	credentials := base64.StdEncoding.EncodeToString([]byte(opts.Username + ":" + opts.Password))
	return &HTTPCollectionAdmin{
		client:     &fasthttp.Client{Name: "replication-connector"},
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		authHeader: "Basic " + credentials,
		bucketType: opts.BucketType,
		timeout:    opts.Timeout,
		logger:     log.WithComponent("http_collection_admin"),
	}
}

func (a *HTTPCollectionAdmin) CreateCollection(ctx context.Context, name string, quotaMB int) error {
	form := url.Values{}
	form.Set("name", name)
	form.Set("ramQuotaMB", strconv.Itoa(quotaMB))
	form.Set("bucketType", a.bucketType)

	status, body, err := a.do(ctx, fasthttp.MethodPost, a.baseURL+bucketsPath, []byte(form.Encode()))
	if err != nil {
		return err
	}
	if status >= 200 && status < 300 {
		a.logger.WithFields(map[string]interface{}{"collection": name, "quota_mb": quotaMB}).Info("Collection created")
		return nil
	}
	if status == fasthttp.StatusBadRequest && alreadyExists(body) {
		return apperrors.ErrCollectionAlreadyExists
	}
	return statusError(status, body)
}

func (a *HTTPCollectionAdmin) DeleteCollection(ctx context.Context, name string) error {
	status, body, err := a.do(ctx, fasthttp.MethodDelete, a.baseURL+bucketsPath+"/"+url.PathEscape(name), nil)
	if err != nil {
		return err
	}
	if status == fasthttp.StatusNotFound {
		return fmt.Errorf("%w: %s", apperrors.ErrCollectionNotFound, name)
	}
	if status < 200 || status >= 300 {
		return statusError(status, body)
	}
	a.logger.WithFields(map[string]interface{}{"collection": name}).Info("Collection deleted")
	return nil
}

func (a *HTTPCollectionAdmin) do(ctx context.Context, method, uri string, form []byte) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	timeout := a.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(method)
	req.Header.Set(fasthttp.HeaderAuthorization, a.authHeader)
	if form != nil {
		req.Header.SetContentType("application/x-www-form-urlencoded")
		req.SetBody(form)
	}

	if err := a.client.DoTimeout(req, resp, timeout); err != nil {
		return 0, nil, err
	}
	body := append([]byte(nil), resp.Body()...)
	return resp.StatusCode(), body, nil
}

// statusError reports an unexpected cluster response. Callers add the collection context.
func statusError(status int, body []byte) error {
	return fmt.Errorf("status %d: %s", status, strings.TrimSpace(string(body)))
}

func alreadyExists(body []byte) bool {
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(parsed.Errors["name"]), "already exists")
}
