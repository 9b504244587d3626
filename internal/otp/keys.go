package otp

import "fmt"

func challengeKey(purpose Purpose, phone string) string {
	return fmt.Sprintf("otp:verify:%s:%s", purpose, phone)
}

func failKey(purpose Purpose, phone string) string {
	return fmt.Sprintf("otp:verify:fail:%s:%s", purpose, phone)
}

func lockKey(purpose Purpose, phone string) string {
	return fmt.Sprintf("otp:verify:lock:%s:%s", purpose, phone)
}

func cooldownKey(phone string) string { return "otp:cooldown:" + phone }

func windowKey(phone string) string { return "otp:window:" + phone }

func dailyKey(phone string) string { return "otp:daily:" + phone }
