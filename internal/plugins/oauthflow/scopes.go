package oauthflow

// scopeDescriptions are shown next to each requested scope on the consent
// page. Scopes missing from the table are shown by name only.
var scopeDescriptions = map[string]string{
	"openid":              "Use this account to verify the user's identity.",
	"offline":             "Act on behalf of the user while the user is offline.",
	"offline_access":      "Act on behalf of the user while the user is offline.",
	"profile":             "Access to the user's profile information.",
	"email":               "Access to the user's e-mail address.",
	"meteringpoints.read": "Read access to information about the user's metering points.",
	"measurements.read":   "Read access to measurements from the user's metering points.",
	"ggo.read":            "Read access to the user's GGOs.",
	"ggo.transfer":        "Transfer GGOs on behalf of the user.",
	"ggo.retire":          "Retire GGOs on behalf of the user.",
	"disclosure":          "Create disclosures on behalf of the user.",
}

// describeScopes pairs each requested scope with its description,
// preserving the requested order.
func describeScopes(requested []string) []Scope {
	scopes := make([]Scope, 0, len(requested))
	for _, name := range requested {
		desc, ok := scopeDescriptions[name]
		if !ok {
			desc = name
		}
		scopes = append(scopes, Scope{Name: name, Description: desc})
	}
	return scopes
}
