// Package identity models the authenticated caller: subject, role
// membership, and named-policy evaluation. Identities travel on the request
// context so the same checks apply to real and synthetic requests. A nil
// identity is anonymous and fails every role or policy requirement.
package identity
