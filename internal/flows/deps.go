package flows

// Deps is the complete wiring of every flow. The engine fills it in Build;
// each Run* function sees only its own slice.
type Deps struct {
	Signup        SignupDeps
	Login         LoginDeps
	PasswordReset PasswordResetDeps
	Refresh       RefreshDeps
	Validate      ValidateDeps
}
