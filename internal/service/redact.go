package service

import "strings"

// maskEmail keeps the first and last character of the local part so that log
// lines can be correlated with an account without carrying the address.
func maskEmail(email string) string {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return ""
	}
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || strings.Contains(domain, "@") {
		return "***"
	}
	if len(local) <= 2 {
		return local[:1] + "***@" + domain
	}
	return local[:1] + "***" + local[len(local)-1:] + "@" + domain
}

// maskPhone leaves the last two digits visible.
func maskPhone(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	if len(digits) <= 2 {
		return "***"
	}
	return strings.Repeat("*", len(digits)-2) + digits[len(digits)-2:]
}
