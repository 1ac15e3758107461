package models

import (
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MaxSkillLength       = 50
	MaxSwapMessageLength = 1000
	MaxCommentLength     = 500
	MaxLocationLength    = 100
	MaxTitleLength       = 100
	MaxNotificationText  = 500
	MinPasswordLength    = 6
	MinAdminPassword     = 8
)

func runeLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

// ValidateSkills проверяет длину каждого навыка
func ValidateSkills(v *ValidationError, field string, skills []string) {
	for _, skill := range skills {
		if l := runeLen(skill); l < 1 || l > MaxSkillLength {
			v.Add(field, "Skill name must be between 1 and 50 characters")
			return
		}
	}
}

// NormalizeSkills обрезает пробелы и убирает дубликаты, сохраняя порядок
func NormalizeSkills(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// ValidateName проверяет отображаемое имя
func ValidateName(v *ValidationError, name string) {
	if l := runeLen(name); l < 2 || l > 50 {
		v.Add("name", "Name must be between 2 and 50 characters")
	}
}

// ValidateEmail проверяет адрес почты
func ValidateEmail(v *ValidationError, email string) {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != strings.TrimSpace(email) {
		v.Add("email", "Please enter a valid email")
	}
}

// NormalizeEmail приводит адрес к нижнему регистру
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidatePassword проверяет пароль пользователя: минимум 6 символов и цифра
func ValidatePassword(v *ValidationError, field, password string) {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		v.Add(field, "Password must be at least 6 characters")
		return
	}
	if !strings.ContainsFunc(password, unicode.IsDigit) {
		v.Add(field, "Password must contain at least one number")
	}
}

// ValidateLocation проверяет длину местоположения
func ValidateLocation(v *ValidationError, location string) {
	if runeLen(location) > MaxLocationLength {
		v.Add("location", "Location cannot be more than 100 characters")
	}
}
