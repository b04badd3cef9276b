package blogauth

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// emailRules check address syntax only; no MX lookup happens on the request
// path. Requiring an '@' also keeps emails disjoint from generated usernames,
// which signin resolves through the same identifier lookup.
var emailRules = []validation.Rule{
	validation.Required,
	validation.Length(3, 254),
	is.EmailFormat,
}

func checkEmail(email string) error {
	return validation.Validate(email, emailRules...)
}
