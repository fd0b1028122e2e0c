package main

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/cryptobyte"

	"github.com/pqtls/kexdispatch/pkg/kem"
	"github.com/pqtls/kexdispatch/pkg/keyshare"
	"github.com/pqtls/kexdispatch/pkg/namedgroup"
	"github.com/pqtls/kexdispatch/pkg/sigalg"
)

// ------------------------ Key File Format ------------------------

// PublicKeyFile represents the JSON structure for public key files
type PublicKeyFile struct {
	Algorithm string `json:"algorithm"`
	PublicKey string `json:"public_key"` // base64 encoded
}

// SecretKeyFile represents the JSON structure for secret key files
type SecretKeyFile struct {
	Algorithm string `json:"algorithm"`
	SecretKey string `json:"secret_key"` // base64 encoded
}

// SavePublicKey saves a public key to a JSON file
func SavePublicKey(filename string, algorithm string, publicKey []byte) error {
	keyFile := PublicKeyFile{
		Algorithm: algorithm,
		PublicKey: base64.StdEncoding.EncodeToString(publicKey),
	}

	data, err := json.MarshalIndent(keyFile, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal public key: %w", err)
	}

	// #nosec G306 - Public keys are meant to be readable (0644 is appropriate)
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write public key file: %w", err)
	}

	return nil
}

// SaveSecretKey saves a secret key to a JSON file
func SaveSecretKey(filename string, algorithm string, secretKey []byte) error {
	keyFile := SecretKeyFile{
		Algorithm: algorithm,
		SecretKey: base64.StdEncoding.EncodeToString(secretKey),
	}

	data, err := json.MarshalIndent(keyFile, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal secret key: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write secret key file: %w", err)
	}

	return nil
}

// LoadPublicKey loads a public key from a JSON file
func LoadPublicKey(filename string) (algorithm string, publicKey []byte, err error) {
	// #nosec G304 - filename comes from CLI args or config, validated by caller
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read public key file: %w", err)
	}

	var keyFile PublicKeyFile
	if err := json.Unmarshal(data, &keyFile); err != nil {
		return "", nil, fmt.Errorf("failed to unmarshal public key: %w", err)
	}

	publicKey, err = base64.StdEncoding.DecodeString(keyFile.PublicKey)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode public key: %w", err)
	}

	return keyFile.Algorithm, publicKey, nil
}

// LoadSecretKey loads a secret key from a JSON file
func LoadSecretKey(filename string) (algorithm string, secretKey []byte, err error) {
	// #nosec G304 - filename comes from CLI args or config, validated by caller
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read secret key file: %w", err)
	}

	var keyFile SecretKeyFile
	if err := json.Unmarshal(data, &keyFile); err != nil {
		return "", nil, fmt.Errorf("failed to unmarshal secret key: %w", err)
	}

	secretKey, err = base64.StdEncoding.DecodeString(keyFile.SecretKey)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode secret key: %w", err)
	}

	return keyFile.Algorithm, secretKey, nil
}

// ------------------------ Commands ------------------------

func cmdGenkey(kemName, keyName string) error {
	k := kem.Get(kemName)
	if k == nil {
		return fmt.Errorf("unknown KEM algorithm: %s\nAvailable KEMs: %s", kemName, strings.Join(kem.List(), ", "))
	}

	fmt.Printf("Generating %s keypair...\n", k.Name())

	publicKey, secretKey, err := k.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("key generation failed: %w", err)
	}

	pubFile := keyName + ".pub"
	secFile := keyName + ".sec"

	if err := SavePublicKey(pubFile, k.Name(), publicKey); err != nil {
		return err
	}

	if err := SaveSecretKey(secFile, k.Name(), secretKey); err != nil {
		return err
	}

	fmt.Printf("Generated %s keypair\n", k.Name())
	fmt.Printf("  Public key:  %s (%d bytes)\n", pubFile, len(publicKey))
	fmt.Printf("  Secret key:  %s (%d bytes)\n", secFile, len(secretKey))

	return nil
}

// cmdGroups lists every named group the dispatch layer knows about,
// flagging which ones are actually backed by an implementation in this
// build.
func cmdGroups() error {
	fmt.Printf("%-28s %-8s %-6s %s\n", "NAME", "GROUPID", "NID", "AVAILABLE")
	for _, g := range namedgroup.All() {
		avail := "no"
		if g.Available {
			avail = "yes"
		}
		fmt.Printf("%-28s %#-8x %-6d %s\n", g.Name, g.GroupID, g.NID, avail)
	}
	return nil
}

// cmdGenshare constructs a fresh KeyShare for groupName, emits its public
// offer to <name>.offer, and -- for groups that support it -- serializes
// its private state to <name>.share so the exchange can be resumed later
// with cmdResume.
func cmdGenshare(groupName, name string) error {
	groupID, ok := namedgroup.NameToGroupID(groupName)
	if !ok {
		return fmt.Errorf("unknown group: %s", groupName)
	}
	share, ok := keyshare.Create(groupID)
	if !ok {
		return fmt.Errorf("group %s has no available implementation", groupName)
	}

	var offer bytes.Buffer
	if err := share.Offer(&offer); err != nil {
		return fmt.Errorf("offer failed: %w", err)
	}
	offerFile := name + ".offer"
	// #nosec G306 - Offer material is public
	if err := os.WriteFile(offerFile, offer.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write offer file: %w", err)
	}
	fmt.Printf("Wrote offer: %s (%d bytes)\n", offerFile, offer.Len())

	var serialized bytes.Buffer
	if err := share.Serialize(&serialized); err != nil {
		share.Destroy()
		fmt.Printf("Group %s does not support resumption: %v\n", groupName, err)
		return nil
	}
	shareFile := name + ".share"
	if err := os.WriteFile(shareFile, serialized.Bytes(), 0600); err != nil {
		share.Destroy()
		return fmt.Errorf("failed to write share file: %w", err)
	}
	fmt.Printf("Wrote resumable share: %s (%d bytes)\n", shareFile, serialized.Len())

	share.Destroy()
	return nil
}

// cmdResume loads a file written by cmdGenshare's resumable output and
// reports what it recovers, demonstrating the group-tagged serialization
// format: an ASN.1 integer group id followed by group-specific private
// material.
func cmdResume(filename string) error {
	// #nosec G304 - filename comes from CLI args, validated by caller
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read share file: %w", err)
	}

	in := cryptobyte.String(data)
	share, ok := keyshare.CreateFromSerialized(&in)
	if !ok {
		return fmt.Errorf("failed to parse or restore share from %s", filename)
	}

	g, found := namedgroup.LookupByGroupID(share.GroupID())
	name := fmt.Sprintf("group %#x", share.GroupID())
	if found {
		name = g.Name
	}
	fmt.Printf("Resumed share for %s, armed and ready to Finish against a peer offer\n", name)
	// This demonstration stops here; a real resumption flow would carry
	// share into a Finish/Accept call instead of destroying it.
	share.Destroy()
	return nil
}

// sigalgKeyTypes names every key type cmdSigalg accepts on the command
// line. cmdSigalg lists them for an unrecognized name in map iteration
// order, which is not fixed.
var sigalgKeyTypes = map[string]sigalg.KeyType{
	"rsa":           sigalg.KeyTypeRSA,
	"ecdsa-p256":    sigalg.KeyTypeECDSAP256,
	"ecdsa-p384":    sigalg.KeyTypeECDSAP384,
	"ecdsa-p521":    sigalg.KeyTypeECDSAP521,
	"ed25519":       sigalg.KeyTypeEd25519,
	"mldsa44":       sigalg.KeyTypeMLDSA44,
	"mldsa65":       sigalg.KeyTypeMLDSA65,
	"mldsa87":       sigalg.KeyTypeMLDSA87,
	"slhdsa128s":    sigalg.KeyTypeSLHDSA128s,
	"slhdsa128f":    sigalg.KeyTypeSLHDSA128f,
	"slhdsa192s":    sigalg.KeyTypeSLHDSA192s,
	"slhdsa192f":    sigalg.KeyTypeSLHDSA192f,
	"slhdsa256s":    sigalg.KeyTypeSLHDSA256s,
	"slhdsa256f":    sigalg.KeyTypeSLHDSA256f,
}

var sigalgDigests = map[string]sigalg.DigestType{
	"sha256": sigalg.DigestSHA256,
	"sha384": sigalg.DigestSHA384,
	"sha512": sigalg.DigestSHA512,
}

// cmdSigalg runs SignAlgorithmOf for the named key type (and, for
// hash-and-sign schemes, digest and padding), then feeds the resulting
// AlgorithmIdentifier straight back through VerifyInit to show the two
// halves of the coding layer agree.
func cmdSigalg(keyTypeName, digestName string, pss bool) error {
	kt, ok := sigalgKeyTypes[keyTypeName]
	if !ok {
		names := make([]string, 0, len(sigalgKeyTypes))
		for n := range sigalgKeyTypes {
			names = append(names, n)
		}
		return fmt.Errorf("unknown key type: %s\nKnown key types: %s", keyTypeName, strings.Join(names, ", "))
	}
	if !sigalg.Available(kt) {
		return fmt.Errorf("key type %s has no available implementation in this build", kt)
	}

	ctx := sigalg.SignContext{KeyType: kt}
	if pss {
		ctx.Padding = sigalg.PaddingPSS
		ctx.PSSSaltLength = 32
	}
	if digestName != "" {
		digest, ok := sigalgDigests[digestName]
		if !ok {
			return fmt.Errorf("unknown digest: %s (want sha256, sha384, or sha512)", digestName)
		}
		ctx.Digest = digest
	}

	algo, err := sigalg.SignAlgorithmOf(ctx)
	if err != nil {
		return fmt.Errorf("sign_algorithm_of: %w", err)
	}
	fmt.Printf("algorithm OID:  %s\n", algo.Algorithm)
	fmt.Printf("parameters:     %v\n", algo.Parameters)

	verifyCtx, err := sigalg.VerifyInit(algo, kt)
	if err != nil {
		return fmt.Errorf("verify_init: %w", err)
	}
	fmt.Printf("verify digest:  %v\n", verifyCtx.Digest)
	return nil
}

// ------------------------ Cobra Commands ------------------------

var rootCmd = &cobra.Command{
	Use:   "kexdispatch",
	Short: "Post-quantum key-exchange dispatch daemon",
	Long:  "A TLS-style key-exchange dispatch layer and peer-to-peer demonstration daemon spanning classical EC Diffie-Hellman, X25519, post-quantum KEMs, and classical+PQ hybrids.",
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

var genkeyCmd = &cobra.Command{
	Use:   "genkey",
	Short: "Generate a raw KEM keypair",
	Long:  "Generate a post-quantum KEM keypair directly, independent of the named-group dispatch layer.",
	RunE: func(cmd *cobra.Command, args []string) error {
		kemName, _ := cmd.Flags().GetString("kem")
		keyName, _ := cmd.Flags().GetString("name")

		if kemName == "" {
			fmt.Println("Error: --kem flag is required")
			fmt.Println()
			fmt.Println("Available KEM algorithms:")
			for _, k := range kem.List() {
				fmt.Printf("  - %s\n", k)
			}
			os.Exit(1)
		}

		return cmdGenkey(kemName, keyName)
	},
}

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List named groups known to the dispatch layer",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdGroups()
	},
}

var genshareCmd = &cobra.Command{
	Use:   "genshare",
	Short: "Generate a KeyShare offer for a named group",
	RunE: func(cmd *cobra.Command, args []string) error {
		groupName, _ := cmd.Flags().GetString("group")
		name, _ := cmd.Flags().GetString("name")
		if groupName == "" {
			return fmt.Errorf("--group flag is required")
		}
		return cmdGenshare(groupName, name)
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume <file>",
	Short: "Load a serialized KeyShare written by genshare",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdResume(args[0])
	},
}

var sigalgCmd = &cobra.Command{
	Use:   "sigalg",
	Short: "Show the signature AlgorithmIdentifier for a key type and digest",
	Long:  "Run sign_algorithm_of for the given key type (and digest/padding, where applicable), then verify_init on the result, demonstrating the signature-OID coding layer end to end.",
	RunE: func(cmd *cobra.Command, args []string) error {
		keyType, _ := cmd.Flags().GetString("key-type")
		digest, _ := cmd.Flags().GetString("digest")
		pss, _ := cmd.Flags().GetBool("pss")
		if keyType == "" {
			return fmt.Errorf("--key-type flag is required")
		}
		return cmdSigalg(keyType, digest, pss)
	},
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run as daemon with periodic key exchange",
	Long:  "Run as a daemon that maintains continuous key exchange with peer(s). Can use either flags for a single peer or --config for multiple peers.",
	RunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")

		if configFile != "" {
			config, err := LoadConfig(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			mpd, err := NewMultiPeerDaemon(config)
			if err != nil {
				return fmt.Errorf("failed to create multi-peer daemon: %w", err)
			}

			return mpd.Start()
		}

		listenAddr, _ := cmd.Flags().GetString("listen")
		endpoint, _ := cmd.Flags().GetString("endpoint")
		groupName, _ := cmd.Flags().GetString("group")
		output, _ := cmd.Flags().GetString("output")
		interval, _ := cmd.Flags().GetInt("interval")

		if groupName == "" {
			return fmt.Errorf("--group / -g flag is required")
		}
		if output == "" {
			return fmt.Errorf("--output / -o flag is required")
		}

		config := DaemonConfig{
			ListenAddr:  listenAddr,
			ConnectAddr: endpoint,
			GroupName:   groupName,
			Interval:    interval,
			PeerName:    output,
		}

		daemon, err := NewDaemon(config)
		if err != nil {
			return err
		}

		return daemon.Start()
	},
}

func init() {
	genkeyCmd.Flags().String("kem", "", "KEM algorithm (kyber512, kyber768, kyber1024, xwing, sntrup761) - required")
	genkeyCmd.Flags().String("name", "key", "Key name (creates <name>.pub and <name>.sec)")

	genshareCmd.Flags().String("group", "", "Named group (e.g. X25519, p256_kyber512) - required")
	genshareCmd.Flags().String("name", "share", "Output name (creates <name>.offer and <name>.share)")

	sigalgCmd.Flags().String("key-type", "", "Key type (rsa, ecdsa-p256, ed25519, mldsa65, slhdsa128s, ...) - required")
	sigalgCmd.Flags().String("digest", "sha256", "Digest for hash-and-sign key types (sha256, sha384, sha512)")
	sigalgCmd.Flags().Bool("pss", false, "Use RSA-PSS padding instead of PKCS#1 v1.5 (RSA only)")

	daemonCmd.Flags().StringP("config", "c", "", "Path to TOML configuration file (for multi-peer mode)")
	daemonCmd.Flags().String("listen", "127.0.0.1:8000", "Listen address (single-peer mode)")
	daemonCmd.Flags().StringP("endpoint", "e", "127.0.0.1:8001", "Peer endpoint address (single-peer mode)")
	daemonCmd.Flags().StringP("group", "g", "", "Named group to exchange over (required in single-peer mode)")
	daemonCmd.Flags().StringP("output", "o", "", "Output PSK file path (required in single-peer mode)")
	daemonCmd.Flags().IntP("interval", "i", 120, "Key exchange interval in seconds (single-peer mode)")

	rootCmd.AddCommand(genkeyCmd)
	rootCmd.AddCommand(groupsCmd)
	rootCmd.AddCommand(genshareCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(sigalgCmd)
	rootCmd.AddCommand(daemonCmd)
}

// ------------------------ Main ------------------------

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
