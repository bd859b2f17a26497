// Package lib groups the clients and helpers that sit beside the layered
// handler/service/repository code: billing (Stripe), certificates and QR
// codes, email (Resend), background jobs (Asynq), webhook idempotency,
// Prometheus metrics and object storage.
package lib
