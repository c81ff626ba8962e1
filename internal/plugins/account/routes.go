package account

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the account routes. Registration and password
// reset are public and entered with a login challenge; the profile routes
// require the session cookie set at login.
//
// formLimit guards the POSTs that check a credential or send e-mail.
func RegisterRoutes(e *echo.Echo, h *Handler, requireSession, formLimit echo.MiddlewareFunc) {
	e.GET("/register", h.RegisterForm)
	e.POST("/register", h.Register, formLimit)
	e.GET("/verify-email", h.VerifyEmail)

	e.GET("/reset-password", h.ResetPasswordForm)
	e.POST("/reset-password", h.ResetPassword, formLimit)
	e.GET("/enter-verification-code", h.VerificationCodeForm)
	e.POST("/enter-verification-code", h.VerificationCode, formLimit)
	e.GET("/change-password", h.ChangePasswordForm)
	e.POST("/change-password", h.ChangePassword, formLimit)

	e.GET("/terms", h.Terms)

	e.GET("/edit-profile", h.EditProfileForm, requireSession)
	e.POST("/edit-profile", h.EditProfile, requireSession)
	e.GET("/revoke-consent", h.RevokeConsent, requireSession)
}
