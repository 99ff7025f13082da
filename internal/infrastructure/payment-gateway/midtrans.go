package paymentgateway

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alimikegami/marketplace/payment-service/config"
	circuitbreaker "github.com/alimikegami/marketplace/payment-service/internal/infrastructure/circuit-breaker"
	"github.com/alimikegami/marketplace/payment-service/pkg/errs"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
)

type MidtransClient struct {
	config        config.MidtransConfig
	env           midtrans.EnvironmentType
	production    bool
	publicBaseURL string
	cb            *gobreaker.CircuitBreaker[*midtrans.Error]
}

func CreateMidtransClient(conf *config.Config) *MidtransClient {
	env := midtrans.Sandbox
	if strings.EqualFold(conf.MidtransConfig.Environment, "production") {
		env = midtrans.Production
	}

	return &MidtransClient{
		config:        conf.MidtransConfig,
		env:           env,
		production:    conf.IsProduction(),
		publicBaseURL: strings.TrimRight(conf.PublicBaseURL, "/"),
		cb:            circuitbreaker.CreateCircuitBreaker[*midtrans.Error]("midtrans"),
	}
}

func (c *MidtransClient) CreateCharge(ctx context.Context, req ChargeRequest) (result ChargeResult, err error) {
	expiresAt := time.Now().Add(time.Duration(c.config.ExpiryMinutes) * time.Minute).Unix()

	if c.config.ServerKey == "" {
		if c.production {
			log.Ctx(ctx).Error().Str("component", "CreateCharge").Msg("midtrans server key is not configured")
			return result, errs.ErrConfiguration
		}

		log.Ctx(ctx).Warn().Str("component", "CreateCharge").Str("order_id", req.OrderID).Msg("midtrans server key is empty, issuing dummy charge")
		return ChargeResult{
			Token:       "DUMMY-" + req.OrderID,
			RedirectURL: fmt.Sprintf("%s/checkout/dummy?order_id=%s", c.publicBaseURL, url.QueryEscape(req.OrderID)),
			ExpiresAt:   expiresAt,
			Dummy:       true,
		}, nil
	}

	client := snap.Client{
		ServerKey:  c.config.ServerKey,
		Env:        c.env,
		HttpClient: &sdkTransport{ctx: ctx, baseURL: c.config.SnapBaseURL, timeout: c.config.ChargeTimeout},
	}

	var snapResp *snap.Response
	apiErr, err := c.call(func() *midtrans.Error {
		var callErr *midtrans.Error
		snapResp, callErr = client.CreateTransaction(buildSnapRequest(req, c.config))
		return callErr
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "CreateCharge").Str("order_id", req.OrderID).Msg("")
		return result, err
	}

	if apiErr != nil {
		if apiErr.StatusCode >= http.StatusInternalServerError {
			return result, fmt.Errorf("%w: midtrans returned %d", errs.ErrGatewayUnavailable, apiErr.StatusCode)
		}
		log.Ctx(ctx).Error().Str("component", "CreateCharge").Str("order_id", req.OrderID).Int("status", apiErr.StatusCode).Msg(apiErr.Message)
		return result, fmt.Errorf("%w: %s", errs.ErrGatewayRejected, apiErr.Message)
	}
	if snapResp == nil || snapResp.Token == "" {
		return result, fmt.Errorf("%w: charge response carries no token", errs.ErrGatewayRejected)
	}

	return ChargeResult{
		Token:       snapResp.Token,
		RedirectURL: snapResp.RedirectURL,
		ExpiresAt:   expiresAt,
	}, nil
}

func (c *MidtransClient) QueryStatus(ctx context.Context, orderID string) (result StatusResult, err error) {
	if c.config.ServerKey == "" {
		if c.production {
			return result, errs.ErrConfiguration
		}
		return result, errs.ErrNotFoundUpstream
	}

	client := coreapi.Client{
		ServerKey:  c.config.ServerKey,
		Env:        c.env,
		HttpClient: &sdkTransport{ctx: ctx, baseURL: c.config.APIBaseURL, timeout: c.config.StatusTimeout},
	}

	var statusResp *coreapi.TransactionStatusResponse
	apiErr, err := c.call(func() *midtrans.Error {
		var callErr *midtrans.Error
		statusResp, callErr = client.CheckTransaction(url.PathEscape(orderID))
		return callErr
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "QueryStatus").Str("order_id", orderID).Msg("")
		return result, err
	}

	if apiErr != nil {
		switch {
		case apiErr.StatusCode == http.StatusNotFound:
			return result, errs.ErrNotFoundUpstream
		case apiErr.StatusCode >= http.StatusInternalServerError:
			return result, fmt.Errorf("%w: midtrans returned %d", errs.ErrGatewayUnavailable, apiErr.StatusCode)
		default:
			return result, fmt.Errorf("%w: midtrans returned %d", errs.ErrGatewayRejected, apiErr.StatusCode)
		}
	}
	if statusResp == nil {
		return result, fmt.Errorf("%w: empty status response", errs.ErrGatewayRejected)
	}
	if statusResp.StatusCode == "404" {
		return result, errs.ErrNotFoundUpstream
	}

	return StatusResult{
		TransactionStatus: statusResp.TransactionStatus,
		PaymentType:       statusResp.PaymentType,
		FraudStatus:       statusResp.FraudStatus,
		TransactionID:     statusResp.TransactionID,
		SettlementTime:    statusResp.SettlementTime,
		GrossAmount:       statusResp.GrossAmount,
	}, nil
}

func (c *MidtransClient) VerifySignature(orderID, statusCode, grossAmount, signatureKey string) bool {
	if c.config.ServerKey == "" {
		return true
	}

	expected := Signature(orderID, statusCode, grossAmount, c.config.ServerKey)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(signatureKey))) == 1
}

// Signature is the hex SHA-512 Midtrans puts in notification signature_key.
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// call runs one SDK call through the breaker. Only transport failures count
// against it; HTTP answers come back as the API error for the caller to map.
func (c *MidtransClient) call(fn func() *midtrans.Error) (*midtrans.Error, error) {
	apiErr, err := c.cb.Execute(func() (*midtrans.Error, error) {
		apiErr := fn()
		if apiErr != nil && apiErr.StatusCode == 0 {
			return nil, apiErr
		}
		return apiErr, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrGatewayUnavailable, err)
	}

	return apiErr, nil
}

func buildSnapRequest(req ChargeRequest, conf config.MidtransConfig) *snap.Request {
	items := make([]midtrans.ItemDetails, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, midtrans.ItemDetails{
			ID:    item.ID,
			Name:  truncate(item.Name, 50),
			Price: item.Price.Round(0).IntPart(),
			Qty:   int32(item.Quantity),
		})
	}

	firstName, lastName := splitName(req.Customer.Name)

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.OrderID,
			GrossAmt: req.Amount.Round(0).IntPart(),
		},
		Items: &items,
		CustomerDetail: &midtrans.CustomerDetails{
			FName: firstName,
			LName: lastName,
			Email: req.Customer.Email,
			Phone: req.Customer.Phone,
		},
	}
	if conf.ExpiryMinutes > 0 {
		snapReq.Expiry = &snap.ExpiryDetails{Unit: "minutes", Duration: int64(conf.ExpiryMinutes)}
	}
	if conf.FinishURL != "" {
		snapReq.Callbacks = &snap.Callbacks{Finish: conf.FinishURL}
	}

	return snapReq
}

func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// Midtrans rejects item names longer than 50 characters.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
