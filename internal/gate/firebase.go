package gate

import (
	"context"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// FirebaseVerifier implements TokenVerifier on Firebase Auth.
type FirebaseVerifier struct {
	client *auth.Client
}

// NewFirebaseVerifier creates a verifier with credentials from environment.
// It expects either GOOGLE_APPLICATION_CREDENTIALS path or GOOGLE_CREDENTIALS
// JSON in env, falling back to application default credentials.
func NewFirebaseVerifier(ctx context.Context, projectID string) (*FirebaseVerifier, error) {
	const op = "NewFirebaseVerifier"

	var opts []option.ClientOption
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		opts = append(opts, option.WithCredentialsFile(credFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, wrapAuthError(op, err, "failed to initialize Firebase app")
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, wrapAuthError(op, err, "failed to create Auth client")
	}
	return &FirebaseVerifier{client: client}, nil
}

// NewFirebaseVerifierWithClient creates a verifier with an explicit client (for testing).
func NewFirebaseVerifierWithClient(client *auth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

// VerifyToken validates idToken and extracts the claims the gate needs.
func (v *FirebaseVerifier) VerifyToken(ctx context.Context, idToken string) (*Claims, error) {
	const op = "VerifyToken"

	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, wrapAuthError(op, ErrUnauthenticated, err.Error())
	}

	email, _ := token.Claims["email"].(string)
	return &Claims{UID: token.UID, Email: email}, nil
}
