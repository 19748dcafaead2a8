package email

type ResetPasswordData struct {
	Name     string
	Email    string
	Password string
}
