// Package templates renders the HTML pages of the identity front-end. Pages
// are Go html/template files embedded in the binary and exposed as templ
// components, so handlers render them through middleware.Render like any
// other component.
package templates

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"

	"github.com/a-h/templ"

	"github.com/keyxmakerx/identity/internal/templates/layouts"
)

// Page names.
const (
	PageLogin            = "login"
	PageRegister         = "register"
	PageConsent          = "consent"
	PageResetPassword    = "reset_password"
	PageVerificationCode = "enter_verification_code"
	PageChangePassword   = "change_password"
	PageEditProfile      = "edit_profile"
	PageTerms            = "terms"
	PageError            = "error"
)

//go:embed html/*.html
var htmlFiles embed.FS

//go:embed static
var staticFiles embed.FS

// pages holds one parsed template set per page: the shared layout plus the
// page's own "title" and "content" blocks.
var pages = mustParsePages(
	PageLogin, PageRegister, PageConsent, PageResetPassword, PageVerificationCode,
	PageChangePassword, PageEditProfile, PageTerms, PageError,
)

// document is the value every template executes with. Page holds the view
// model; the remaining fields come from the request context.
type document struct {
	CSRFToken string
	SignedIn  bool
	Page      any
}

// Page returns the named page as a component. It panics on an unknown name,
// which is a programming error caught by the package tests.
func Page(name string, view any) templ.Component {
	t, ok := pages[name]
	if !ok {
		panic(fmt.Sprintf("templates: unknown page %q", name))
	}
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		doc := document{
			CSRFToken: layouts.CSRFToken(ctx),
			SignedIn:  layouts.SignedIn(ctx),
			Page:      view,
		}
		return templ.FromGoHTML(t, doc).Render(ctx, w)
	})
}

// Static returns the embedded stylesheet directory.
func Static() fs.FS {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

func mustParsePages(names ...string) map[string]*template.Template {
	layout := template.Must(template.New("layout.html").ParseFS(htmlFiles, "html/layout.html"))

	out := make(map[string]*template.Template, len(names))
	for _, name := range names {
		t := template.Must(layout.Clone())
		out[name] = template.Must(t.ParseFS(htmlFiles, "html/"+name+".html"))
	}
	return out
}
