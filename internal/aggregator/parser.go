package aggregator

import (
	"strings"

	"github.com/leakdex/leakdex/internal/models"
)

// ParseLine derives an account record from one raw dump line. Formats are
// tried in strict precedence order, first match wins:
//
//	a. url:username:password   (at least 2 colons; password keeps any
//	                             further colons)
//	b. username:password@url   (colon before the last @)
//	c. email:password          (colon after the @)
//	d. whole line as url
//
// Ambiguous lines are deliberately biased toward the colon-delimited triple
// before the @-based formats. A protocol prefix such as "http://" is stripped
// before counting colons so its colon never splits the line, and is restored
// on the url field.
func ParseLine(line string) models.AccountRecord {
	prefix := ""
	body := line
	if i := strings.Index(line, "://"); i >= 0 {
		prefix = line[:i+3]
		body = line[i+3:]
	}

	c1 := strings.Index(body, ":")
	lastAt := strings.LastIndex(body, "@")

	switch {
	case strings.Count(body, ":") >= 2:
		rest := body[c1+1:]
		c2 := strings.Index(rest, ":")
		return models.AccountRecord{
			URL:      prefix + body[:c1],
			Username: rest[:c2],
			Password: rest[c2+1:],
		}

	case c1 >= 0 && lastAt >= 0 && c1 < lastAt:
		credentials := body[:lastAt]
		sep := strings.Index(credentials, ":")
		return models.AccountRecord{
			URL:      prefix + body[lastAt+1:],
			Username: credentials[:sep],
			Password: credentials[sep+1:],
		}

	case c1 >= 0 && lastAt >= 0:
		email := body[:c1]
		at := strings.LastIndex(email, "@")
		return models.AccountRecord{
			URL:      prefix + email[at+1:],
			Username: email[:at],
			Password: body[c1+1:],
		}

	default:
		return models.AccountRecord{URL: line}
	}
}
