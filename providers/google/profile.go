package google

import authflow "github.com/goliatone/go-authflow"

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
	Locale        string `json:"locale"`
}

func mapProfile(info *googleUserInfo) *authflow.Profile {
	if info == nil {
		return nil
	}

	return &authflow.Profile{
		ProviderAccountID: info.Sub,
		Name:              info.Name,
		Email:             info.Email,
		Image:             info.Picture,
		EmailVerified:     info.EmailVerified,
		Raw: map[string]any{
			"sub":            info.Sub,
			"email":          info.Email,
			"email_verified": info.EmailVerified,
			"name":           info.Name,
			"given_name":     info.GivenName,
			"family_name":    info.FamilyName,
			"picture":        info.Picture,
			"locale":         info.Locale,
		},
	}
}
