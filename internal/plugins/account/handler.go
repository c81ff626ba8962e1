package account

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/identity/internal/apperror"
	"github.com/keyxmakerx/identity/internal/middleware"
	"github.com/keyxmakerx/identity/internal/plugins/audit"
	"github.com/keyxmakerx/identity/internal/plugins/users"
	"github.com/keyxmakerx/identity/internal/session"
	"github.com/keyxmakerx/identity/internal/templates"
)

// Handler handles the account pages. Handlers are thin: they bind and
// validate the form, call the service, and render or redirect.
type Handler struct {
	service      AccountService
	users        users.UserService
	allowedHosts []string
}

// NewHandler creates a new account handler. allowedHosts lists the hosts
// an absolute return_url may point to.
func NewHandler(service AccountService, userSvc users.UserService, allowedHosts []string) *Handler {
	return &Handler{service: service, users: userSvc, allowedHosts: allowedHosts}
}

// requireQuery returns the named query parameter, or an input error when
// it is missing.
func requireQuery(c echo.Context, name string) (string, error) {
	v := c.QueryParam(name)
	if v == "" {
		return "", apperror.NewInput("missing " + name)
	}
	return v, nil
}

// --- Registration ---

// RegisterForm handles GET /register.
func (h *Handler) RegisterForm(c echo.Context) error {
	challenge, err := requireQuery(c, "challenge")
	if err != nil {
		return err
	}
	return h.renderRegister(c, templates.RegisterView{Challenge: challenge})
}

// Register handles POST /register.
func (h *Handler) Register(c echo.Context) error {
	challenge, err := requireQuery(c, "challenge")
	if err != nil {
		return err
	}

	var form registerForm
	if err := c.Bind(&form); err != nil {
		return apperror.NewInput("invalid registration form")
	}

	view := templates.RegisterView{
		Challenge: challenge,
		Name:      form.Name,
		Company:   form.Company,
		Phone:     form.Phone,
		Email:     form.Email,
	}

	errs := validateRegister(&form)
	if _, bad := errs["email"]; !bad {
		available, err := h.users.EmailAvailable(c.Request().Context(), form.Email)
		if err != nil {
			return err
		}
		if !available {
			errs.add("email", msgEmailTaken)
		}
	}
	if errs != nil {
		view.Errors = errs
		return h.renderRegister(c, view)
	}

	_, err = h.service.Register(c.Request().Context(), challenge, users.RegisterInput{
		Name:     form.Name,
		Company:  form.Company,
		Phone:    form.Phone,
		Email:    form.Email,
		Password: form.Password,
	}, c.RealIP())
	if errors.Is(err, users.ErrEmailTaken) {
		view.Errors = fieldErrors{"email": msgEmailTaken}
		return h.renderRegister(c, view)
	}
	if err != nil {
		return err
	}

	view.Email = users.NormalizeEmail(form.Email)
	view.Complete = true
	return h.renderRegister(c, view)
}

func (h *Handler) renderRegister(c echo.Context, view templates.RegisterView) error {
	return middleware.Render(c, http.StatusOK, templates.Page(templates.PageRegister, view))
}

// VerifyEmail handles GET /verify-email, the link from the welcome e-mail.
func (h *Handler) VerifyEmail(c echo.Context) error {
	challenge, err := requireQuery(c, "challenge")
	if err != nil {
		return err
	}
	email, err := requireQuery(c, "email")
	if err != nil {
		return err
	}
	token, err := requireQuery(c, "activate_token")
	if err != nil {
		return err
	}

	if err := h.service.VerifyEmail(c.Request().Context(), email, token, c.RealIP()); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/login?"+url.Values{"login_challenge": {challenge}}.Encode())
}

// --- Password reset ---

// ResetPasswordForm handles GET /reset-password.
func (h *Handler) ResetPasswordForm(c echo.Context) error {
	challenge, err := requireQuery(c, "challenge")
	if err != nil {
		return err
	}
	return h.renderResetPassword(c, templates.ResetPasswordView{Challenge: challenge})
}

// ResetPassword handles POST /reset-password. The browser moves on to the
// code page whether or not the address is registered.
func (h *Handler) ResetPassword(c echo.Context) error {
	challenge, err := requireQuery(c, "challenge")
	if err != nil {
		return err
	}

	var form resetPasswordForm
	if err := c.Bind(&form); err != nil {
		return apperror.NewInput("invalid reset form")
	}
	if !validEmail(form.Email) {
		return h.renderResetPassword(c, templates.ResetPasswordView{
			Challenge: challenge,
			Email:     form.Email,
			Error:     msgInvalidEmail,
		})
	}

	email := users.NormalizeEmail(form.Email)
	if err := h.service.RequestPasswordReset(c.Request().Context(), challenge, email, c.RealIP()); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/enter-verification-code?"+url.Values{
		"challenge": {challenge},
		"email":     {email},
	}.Encode())
}

func (h *Handler) renderResetPassword(c echo.Context, view templates.ResetPasswordView) error {
	return middleware.Render(c, http.StatusOK, templates.Page(templates.PageResetPassword, view))
}

// VerificationCodeForm handles GET /enter-verification-code.
func (h *Handler) VerificationCodeForm(c echo.Context) error {
	view, err := verificationView(c)
	if err != nil {
		return err
	}
	return h.renderVerificationCode(c, view)
}

// VerificationCode handles POST /enter-verification-code.
func (h *Handler) VerificationCode(c echo.Context) error {
	view, err := verificationView(c)
	if err != nil {
		return err
	}

	var form verificationCodeForm
	if err := c.Bind(&form); err != nil {
		return apperror.NewInput("invalid verification form")
	}
	code := strings.TrimSpace(form.Code)

	err = h.service.VerifyResetCode(c.Request().Context(), view.Email, code)
	if errors.Is(err, users.ErrInvalidToken) {
		view.Error = msgWrongCode
		return h.renderVerificationCode(c, view)
	}
	if err != nil {
		return err
	}

	return c.Redirect(http.StatusSeeOther, "/change-password?"+url.Values{
		"challenge":         {view.Challenge},
		"email":             {view.Email},
		"verification_code": {code},
	}.Encode())
}

func verificationView(c echo.Context) (templates.VerificationCodeView, error) {
	challenge, err := requireQuery(c, "challenge")
	if err != nil {
		return templates.VerificationCodeView{}, err
	}
	email, err := requireQuery(c, "email")
	if err != nil {
		return templates.VerificationCodeView{}, err
	}
	return templates.VerificationCodeView{Challenge: challenge, Email: email}, nil
}

func (h *Handler) renderVerificationCode(c echo.Context, view templates.VerificationCodeView) error {
	return middleware.Render(c, http.StatusOK, templates.Page(templates.PageVerificationCode, view))
}

// ChangePasswordForm handles GET /change-password. A code that no longer
// matches is reported before the user types a new password.
func (h *Handler) ChangePasswordForm(c echo.Context) error {
	view, err := changePasswordView(c)
	if err != nil {
		return err
	}

	err = h.service.VerifyResetCode(c.Request().Context(), view.Email, view.Code)
	if errors.Is(err, users.ErrInvalidToken) {
		view.Errors = fieldErrors{"form": msgWrongCode}
	} else if err != nil {
		return err
	}
	return h.renderChangePassword(c, view)
}

// ChangePassword handles POST /change-password.
func (h *Handler) ChangePassword(c echo.Context) error {
	view, err := changePasswordView(c)
	if err != nil {
		return err
	}

	var form changePasswordForm
	if err := c.Bind(&form); err != nil {
		return apperror.NewInput("invalid change password form")
	}

	var errs fieldErrors
	newPassword(&errs, form.Password, form.Password2)
	if errs != nil {
		view.Errors = errs
		return h.renderChangePassword(c, view)
	}

	err = h.service.ChangePassword(c.Request().Context(), view.Email, view.Code, form.Password, c.RealIP())
	if errors.Is(err, users.ErrInvalidToken) {
		view.Errors = fieldErrors{"form": msgWrongCode}
		return h.renderChangePassword(c, view)
	}
	if err != nil {
		return err
	}

	view.Complete = true
	return h.renderChangePassword(c, view)
}

func changePasswordView(c echo.Context) (templates.ChangePasswordView, error) {
	var view templates.ChangePasswordView
	var err error
	if view.Challenge, err = requireQuery(c, "challenge"); err != nil {
		return view, err
	}
	if view.Email, err = requireQuery(c, "email"); err != nil {
		return view, err
	}
	if view.Code, err = requireQuery(c, "verification_code"); err != nil {
		return view, err
	}
	return view, nil
}

func (h *Handler) renderChangePassword(c echo.Context, view templates.ChangePasswordView) error {
	return middleware.Render(c, http.StatusOK, templates.Page(templates.PageChangePassword, view))
}

// --- Profile ---

// EditProfileForm handles GET /edit-profile.
func (h *Handler) EditProfileForm(c echo.Context) error {
	returnURL, err := checkReturnURL(c.QueryParam("return_url"), h.allowedHosts)
	if err != nil {
		return err
	}

	profile, err := h.service.Profile(c.Request().Context(), session.Subject(c))
	if err != nil {
		return err
	}
	view := profileView(profile, returnURL)
	view.Name = profile.User.Name
	view.Company = profile.User.Company
	view.Phone = profile.User.Phone
	return h.renderProfile(c, http.StatusOK, view)
}

// EditProfile handles POST /edit-profile.
func (h *Handler) EditProfile(c echo.Context) error {
	returnURL, err := checkReturnURL(c.QueryParam("return_url"), h.allowedHosts)
	if err != nil {
		return err
	}
	subject := session.Subject(c)

	var form profileForm
	if err := c.Bind(&form); err != nil {
		return apperror.NewInput("invalid profile form")
	}

	errs := validateProfile(&form)
	if errs == nil {
		err = h.service.UpdateProfile(c.Request().Context(), subject, users.DetailsInput{
			Name:            form.Name,
			Company:         form.Company,
			Phone:           form.Phone,
			CurrentPassword: form.CurrentPassword,
			NewPassword:     form.Password,
		}, c.RealIP())
		if errors.Is(err, users.ErrInvalidCredentials) {
			errs = fieldErrors{"current_password": msgCurrentPassword}
		} else if err != nil {
			return err
		} else {
			return c.Redirect(http.StatusSeeOther, returnURL)
		}
	}

	profile, err := h.service.Profile(c.Request().Context(), subject)
	if err != nil {
		return err
	}
	view := profileView(profile, returnURL)
	view.Name = form.Name
	view.Company = form.Company
	view.Phone = form.Phone
	view.Errors = errs
	return h.renderProfile(c, http.StatusOK, view)
}

// RevokeConsent handles GET /revoke-consent.
func (h *Handler) RevokeConsent(c echo.Context) error {
	clientID, err := requireQuery(c, "client_id")
	if err != nil {
		return err
	}
	returnURL, err := checkReturnURL(c.QueryParam("return_url"), h.allowedHosts)
	if err != nil {
		return err
	}

	if err := h.service.RevokeConsent(c.Request().Context(), session.Subject(c), clientID, c.RealIP()); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/edit-profile?"+url.Values{"return_url": {returnURL}}.Encode())
}

// profileView fills the parts of the profile page that come from the
// directory and the backend rather than the form.
func profileView(p *Profile, returnURL string) templates.EditProfileView {
	view := templates.EditProfileView{
		ReturnURL: returnURL,
		Email:     p.User.Email,
	}

	seen := make(map[string]bool, len(p.Grants))
	for _, g := range p.Grants {
		client := g.ConsentRequest.Client
		if seen[client.ClientID] {
			continue
		}
		seen[client.ClientID] = true
		view.Grants = append(view.Grants, templates.GrantView{
			ClientID:   client.ClientID,
			ClientName: client.DisplayName(),
			Scopes:     g.GrantScope,
		})
	}

	for _, e := range p.Events {
		view.Events = append(view.Events, eventView(e))
	}
	return view
}

func eventView(e audit.Event) templates.EventView {
	return templates.EventView{
		Label:    e.Label(),
		ClientID: e.ClientID,
		RemoteIP: e.RemoteIP,
		When:     e.CreatedAt.UTC().Format(time.DateTime + " UTC"),
	}
}

func (h *Handler) renderProfile(c echo.Context, status int, view templates.EditProfileView) error {
	return middleware.Render(c, status, templates.Page(templates.PageEditProfile, view))
}

// --- Terms ---

// Terms handles GET /terms.
func (h *Handler) Terms(c echo.Context) error {
	return middleware.Render(c, http.StatusOK, templates.Page(templates.PageTerms, nil))
}
