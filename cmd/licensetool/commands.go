package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"licensegate/internal/config"
	"licensegate/internal/license"
	"licensegate/pkg/contracts"
)

// keyEnv is the variable the server reads its deployment key from
const keyEnv = config.EnvPrefix + "_LICENSE_SECRET_HEX"

// errInvalidLicense makes verify exit non-zero without printing usage
var errInvalidLicense = errors.New("license is not valid")

// NewRootCmd builds the licensetool command tree
func NewRootCmd() *cobra.Command {
	var keyHex string

	cmd := &cobra.Command{
		Use:           "licensetool",
		Short:         "Issue, verify and inspect license tokens",
		Version:       contracts.GetFullVersionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&keyHex, "key-hex", "",
		"16-byte signing key as 32 hex characters (default $"+keyEnv+", then the built-in key)")

	resolveKey := func(cmd *cobra.Command) ([]byte, error) {
		src := keyHex
		if src == "" {
			src = os.Getenv(keyEnv)
		}
		if src == "" {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning: using the built-in license key")
			return nil, nil
		}
		return license.ParseKey(src)
	}

	cmd.AddCommand(
		newIssueCmd(resolveKey),
		newVerifyCmd(resolveKey),
		newInspectCmd(resolveKey),
		newKeygenCmd(),
		newVersionCmd(),
	)
	return cmd
}

type keyResolver func(cmd *cobra.Command) ([]byte, error)

func newIssueCmd(resolveKey keyResolver) *cobra.Command {
	var (
		email       string
		licenseType string
		createdAt   string
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a signed license token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := resolveKey(cmd)
			if err != nil {
				return err
			}
			issuer, err := license.NewIssuer(key)
			if err != nil {
				return err
			}

			ms, err := parseCreatedAt(createdAt, time.Now())
			if err != nil {
				return err
			}

			token, err := issuer.IssueAt(email, ms, licenseType)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "licensee email")
	cmd.Flags().StringVar(&licenseType, "type", "", "license type, e.g. pro or enterprise")
	cmd.Flags().StringVar(&createdAt, "created-at", "", "creation time as RFC 3339 or Unix milliseconds (default now)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newVerifyCmd(resolveKey keyResolver) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "verify <token|->",
		Short: "Verify a license token; exits non-zero when it is not valid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := resolveKey(cmd)
			if err != nil {
				return err
			}
			raw, err := readToken(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			now, err := parseAt(at)
			if err != nil {
				return err
			}

			verifier, err := license.NewVerifier(key)
			if err != nil {
				return err
			}

			tok, err := license.Decode(raw)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "invalid: %v\n", err)
				return errInvalidLicense
			}

			res := verifier.Verify(tok, now)
			if !res.Valid {
				fmt.Fprintln(cmd.OutOrStdout(), "invalid: signature mismatch or outside the validity window")
				return errInvalidLicense
			}
			fmt.Fprintf(cmd.OutOrStdout(), "valid: license_type=%s\n", res.LicenseType)
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "verify as of this RFC 3339 time (default now)")
	return cmd
}

// inspection is the YAML view printed by inspect
type inspection struct {
	Email       string `yaml:"email"`
	CreatedAt   uint64 `yaml:"created_at"`
	CreatedTime string `yaml:"created_time"`
	ExpiresTime string `yaml:"expires_time"`
	LicenseType string `yaml:"license_type"`
	Sign        string `yaml:"sign"`
	Payload     string `yaml:"canonical_payload"`
	Hash        string `yaml:"payload_hash"`
	Decrypted   string `yaml:"decrypted_sign,omitempty"`
	Valid       bool   `yaml:"valid"`
}

func newInspectCmd(resolveKey keyResolver) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <token|->",
		Short: "Decode a license token and print its fields as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := resolveKey(cmd)
			if err != nil {
				return err
			}
			raw, err := readToken(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			tok, err := license.Decode(raw)
			if err != nil {
				return err
			}

			verifier, err := license.NewVerifier(key)
			if err != nil {
				return err
			}
			if key == nil {
				key = license.DefaultKey
			}

			payload := license.CanonicalPayload(tok)
			out := inspection{
				Email:       tok.Email,
				CreatedAt:   tok.CreatedAt,
				CreatedTime: formatMillis(tok.CreatedAt, 0),
				ExpiresTime: formatMillis(tok.CreatedAt, time.Duration(license.OneYearMillis)*time.Millisecond),
				LicenseType: tok.LicenseType,
				Sign:        hex.EncodeToString(tok.Sign),
				Payload:     string(payload),
				Hash:        license.Hash(payload),
				Valid:       verifier.Verify(tok, time.Now()).Valid,
			}
			if plain, err := license.DecryptSignature(tok.Sign, key); err == nil {
				out.Decrypted = plain
			}

			data, err := yaml.Marshal(out)
			if err != nil {
				return fmt.Errorf("failed to render token: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a random 16-byte signing key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key := make([]byte, license.BlockSize)
			if _, err := rand.Read(key); err != nil {
				return fmt.Errorf("failed to generate key: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(key))
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := yaml.Marshal(contracts.GetVersionInfo())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

// readToken returns arg, or stdin when arg is "-"
func readToken(stdin io.Reader, arg string) (string, error) {
	if arg != "-" {
		return strings.TrimSpace(arg), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read token from stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// formatMillis renders created_at plus offset as RFC 3339. Values past
// math.MaxInt64 have no time.Time and print as "invalid".
func formatMillis(ms uint64, offset time.Duration) string {
	if ms > math.MaxInt64 {
		return "invalid"
	}
	return time.UnixMilli(int64(ms)).UTC().Add(offset).Format(time.RFC3339)
}

// parseCreatedAt accepts RFC 3339 or Unix milliseconds; empty means now
func parseCreatedAt(s string, now time.Time) (uint64, error) {
	if s == "" {
		return uint64(now.UnixMilli()), nil
	}
	if ms, err := strconv.ParseUint(s, 10, 64); err == nil {
		return ms, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("invalid --created-at %q: want RFC 3339 or Unix milliseconds", s)
	}
	if t.UnixMilli() < 0 {
		return 0, fmt.Errorf("invalid --created-at %q: before the Unix epoch", s)
	}
	return uint64(t.UnixMilli()), nil
}

func parseAt(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at %q: %w", s, err)
	}
	return t, nil
}
