// Package accounts turns anonymous sign-up requests into durable user accounts and
// drives the verification lifecycle that decides when those accounts may log in.
//
// Registration lifecycle:
//   - RegistrationService.Register creates a pending account (hashed password,
//     ConfirmAccount verification key) and notifies the new address. Existing
//     accounts are never merged or re-created; the caller gets an eligibility
//     error or an ErrAccountExists carrying linked provider names as a hint.
//   - RegistrationService.ConfirmVerification promotes the account to verified
//     and login-allowed, clearing the verification key so it cannot be reused.
//   - RegistrationService.CancelVerification deletes an account that was created
//     but never used to log in.
//   - RegistrationService.ResendVerification re-issues the confirmation key for a
//     pending account, which is the retry path for failed deliveries.
//
// Collaborators:
//   - AccountStore persists accounts. The repository package ships a Bun backed
//     store and an in-memory one.
//   - NotificationDispatcher delivers templated messages. Callers must assume
//     at-least-once delivery. See the notification package.
//   - ActivitySink records audit events. Sinks run best-effort: errors are logged
//     and never fail the operation that produced the event.
package accounts
