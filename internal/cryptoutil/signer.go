package cryptoutil

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"

	"github.com/mcp-tool-shop-org/zip-meta-map-site/internal/xerrors"
)

// kmsAPI is the subset of the KMS API the signer needs.
// Extracted as an interface to enable unit testing without live AWS credentials.
type kmsAPI interface {
	Sign(ctx context.Context, params *kms.SignInput, optFns ...func(*kms.Options)) (*kms.SignOutput, error)
	GetPublicKey(ctx context.Context, params *kms.GetPublicKeyInput, optFns ...func(*kms.Options)) (*kms.GetPublicKeyOutput, error)
}

// KMSSigner signs documents with an asymmetric ECC_NIST_P256 KMS key. The
// message is hashed locally and sent as a digest, so document size is not
// bounded by the KMS 4 KiB raw message limit.
type KMSSigner struct {
	client kmsAPI
	keyARN string

	// cached public key for local verification
	mu     sync.RWMutex
	pubKey *ecdsa.PublicKey
}

func NewKMSSigner(client *kms.Client, keyARN string) *KMSSigner {
	return &KMSSigner{client: client, keyARN: keyARN}
}

// KeyARN identifies the signing key in published metadata.
func (s *KMSSigner) KeyARN() string { return s.keyARN }

// Sign returns an ASN.1 DER ECDSA signature over SHA-256(message).
func (s *KMSSigner) Sign(ctx context.Context, message []byte) ([]byte, error) {
	if s.client == nil {
		return nil, xerrors.New("kms client is not configured")
	}
	digest := Digest(message)
	out, err := s.client.Sign(ctx, &kms.SignInput{
		KeyId:            aws.String(s.keyARN),
		Message:          digest[:],
		MessageType:      kmstypes.MessageTypeDigest,
		SigningAlgorithm: kmstypes.SigningAlgorithmSpecEcdsaSha256,
	})
	if err != nil {
		return nil, xerrors.Wrapf(err, "kms sign with %s", s.keyARN)
	}
	if len(out.Signature) == 0 {
		return nil, xerrors.Newf("kms sign with %s returned an empty signature", s.keyARN)
	}
	return out.Signature, nil
}

// PublicKey fetches and caches the KMS public key.
// First call hits KMS API, subsequent calls return cached key.
func (s *KMSSigner) PublicKey(ctx context.Context) (*ecdsa.PublicKey, error) {
	s.mu.RLock()
	if s.pubKey != nil {
		defer s.mu.RUnlock()
		return s.pubKey, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	// double-check after acquiring write lock
	if s.pubKey != nil {
		return s.pubKey, nil
	}
	if s.client == nil {
		return nil, xerrors.New("kms client is not configured")
	}

	out, err := s.client.GetPublicKey(ctx, &kms.GetPublicKeyInput{
		KeyId: aws.String(s.keyARN),
	})
	if err != nil {
		return nil, xerrors.Wrap(err, "kms get public key")
	}
	if out.KeyUsage != kmstypes.KeyUsageTypeSignVerify {
		return nil, xerrors.Newf("kms key %s has KeyUsage=%s, expected SIGN_VERIFY", s.keyARN, out.KeyUsage)
	}

	pub, err := x509.ParsePKIXPublicKey(out.PublicKey)
	if err != nil {
		return nil, xerrors.Wrap(err, "parse kms public key DER")
	}
	ec, ok := pub.(*ecdsa.PublicKey)
	if !ok || ec.Curve != elliptic.P256() {
		return nil, xerrors.Newf("kms key %s is %T, expected an ECDSA P-256 key", s.keyARN, pub)
	}

	s.pubKey = ec
	return s.pubKey, nil
}

// Verify checks a signature produced by Sign against the cached public key.
func (s *KMSSigner) Verify(ctx context.Context, message, signature []byte) error {
	pub, err := s.PublicKey(ctx)
	if err != nil {
		return err
	}
	digest := Digest(message)
	if !ecdsa.VerifyASN1(pub, digest[:], signature) {
		return xerrors.Newf("ECDSA P-256 signature verification failed for key %s", s.keyARN)
	}
	return nil
}
