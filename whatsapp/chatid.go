package whatsapp

import (
	"fmt"
	"strings"
)

// ChatID normalises a recipient. Ids that already carry a server part
// ("@c.us", "@g.us") pass through; a phone number with an optional leading
// "+" and common separators becomes "<digits>@c.us".
func ChatID(to string) (string, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return "", fmt.Errorf("whatsapp: recipient is required")
	}
	if strings.Contains(to, "@") {
		return to, nil
	}

	digits := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimPrefix(to, "+"))

	if digits == "" {
		return "", fmt.Errorf("whatsapp: invalid recipient %q", to)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("whatsapp: invalid recipient %q", to)
		}
	}
	return digits + "@c.us", nil
}
