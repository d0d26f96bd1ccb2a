package dto

import (
	"encoding/json"
	"fmt"

	verifly "github.com/verifly/verifly-go"
	"github.com/verifly/verifly-go/internal/api/shared/constants"
	apierrors "github.com/verifly/verifly-go/internal/api/shared/errors"
)

// CreateVerificationRequest represents the request body for creating a verification session
type CreateVerificationRequest struct {
	Phone       string          `json:"phone"`
	Email       string          `json:"email"`
	Methods     []string        `json:"methods"`
	Lang        string          `json:"lang"`
	WebhookURL  string          `json:"webhook_url"`
	RedirectURL string          `json:"redirect_url"`
	Timeout     int             `json:"timeout"`
	Data        json.RawMessage `json:"data"`
}

// Validate validates the request body
func (r *CreateVerificationRequest) Validate() error {
	// Validate: at least one contact unless the user picks it in the iframe
	if r.Phone == "" && r.Email == "" && len(r.Methods) == 0 {
		return apierrors.NewValidationError("phone, email or methods is required")
	}

	if len(r.Methods) > constants.MAX_METHODS_PER_REQUEST {
		return apierrors.NewValidationError(fmt.Sprintf("maximum %d methods allowed", constants.MAX_METHODS_PER_REQUEST))
	}

	for _, m := range r.Methods {
		switch verifly.Method(m) {
		case verifly.MethodSMS, verifly.MethodWhatsApp, verifly.MethodCall, verifly.MethodEmail:
		default:
			return apierrors.NewValidationError(fmt.Sprintf("invalid method: %s", m))
		}
	}

	return nil
}

// Params converts the request into client parameters
func (r *CreateVerificationRequest) Params() verifly.CreateParams {
	methods := make([]verifly.Method, 0, len(r.Methods))
	for _, m := range r.Methods {
		methods = append(methods, verifly.Method(m))
	}
	if len(methods) == 0 && r.Phone != "" {
		methods = append(methods, constants.DEFAULT_METHODS...)
	}

	params := verifly.CreateParams{
		Phone:       r.Phone,
		Email:       r.Email,
		Methods:     methods,
		Lang:        r.Lang,
		WebhookURL:  r.WebhookURL,
		RedirectURL: r.RedirectURL,
		Timeout:     r.Timeout,
	}
	if len(r.Data) > 0 {
		params.Data = r.Data
	}
	return params
}
