package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"applykit/internal/errors"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	// Secret paths
	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets defines where to find secrets in Vault
type VaultSecrets struct {
	// APIKeys expects a single string with comma-separated values in Vault
	// ("key1,key2,key3"). The first key is the primary, the rest fallbacks.
	APIKeys     string `mapstructure:"apiKeys"`
	GeminiKey   string `mapstructure:"geminiKey"`
	GitHubToken string `mapstructure:"githubToken"`
	TLSCerts    string `mapstructure:"tlsCerts"`
}

// VaultClient wraps the Vault API client
type VaultClient struct {
	client *api.Client
	config VaultConfig
	logger *errors.Logger
}

// NewVaultClient creates a Vault client from configuration. Returns
// (nil, nil) when Vault integration is disabled.
func NewVaultClient(config VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if !config.Enabled {
		logger.Debug("Vault integration disabled")
		return nil, nil
	}

	apiConfig := api.DefaultConfig()
	if config.Address != "" {
		apiConfig.Address = config.Address
	}
	client, err := api.NewClient(apiConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}

	token, err := resolveVaultToken(config, logger)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		logger.LogError(err, "Failed to connect to Vault", "address", config.Address)
		return nil, fmt.Errorf("failed to connect to vault: %w", err)
	}
	logger.Info("Connected to Vault",
		"address", config.Address,
		"version", health.Version,
		"sealed", health.Sealed)

	return &VaultClient{client: client, config: config, logger: logger}, nil
}

// resolveVaultToken resolves the Vault token from config or the token file.
func resolveVaultToken(config VaultConfig, logger *errors.Logger) (string, error) {
	token := config.Token
	if token == "" && config.TokenFile != "" {
		logger.Debug("Reading Vault token from file", "file", config.TokenFile)
		raw, err := os.ReadFile(config.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(raw))
	}
	if token == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}
	return token, nil
}

// VaultSecret represents a secret read from Vault's KVv2 engine.
type VaultSecret struct {
	Data    map[string]any
	Version int64
}

// GetSecretV2 retrieves a secret from a Vault KVv2 store.
func (vc *VaultClient) GetSecretV2(path string) (*VaultSecret, error) {
	if vc == nil {
		return nil, fmt.Errorf("vault client not initialized")
	}

	secret, err := vc.client.Logical().Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}

	data, err := vc.extractSecretData(secret, path)
	if err != nil {
		return nil, err
	}
	version, err := vc.extractSecretVersion(secret, path)
	if err != nil {
		return nil, err
	}
	return &VaultSecret{Data: data, Version: version}, nil
}

func (vc *VaultClient) extractSecretData(secret *api.Secret, path string) (map[string]any, error) {
	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}
	return data, nil
}

func (vc *VaultClient) extractSecretVersion(secret *api.Secret, path string) (int64, error) {
	metadata, ok := secret.Data["metadata"].(map[string]any)
	if !ok {
		return 0, fmt.Errorf("secret at %s is not in KVv2 format (missing 'metadata' field)", path)
	}
	versionRaw, ok := metadata["version"]
	if !ok {
		return 0, fmt.Errorf("secret metadata at %s is missing 'version' field", path)
	}
	return parseVersionValue(versionRaw, path)
}

// parseVersionValue handles the types Vault's JSON layer may hand back
// for the version number.
func parseVersionValue(versionRaw any, path string) (int64, error) {
	switch v := versionRaw.(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		version, err := parseInt64(v)
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
		}
		return version, nil
	default:
		return 0, fmt.Errorf("unexpected type for version at %s: %T", path, versionRaw)
	}
}

func parseInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// GetStringSecret retrieves a single string value from a Vault secret.
func (vc *VaultClient) GetStringSecret(path, key string) (string, error) {
	secret, err := vc.GetSecretV2(path)
	if err != nil {
		return "", err
	}
	value, ok := secret.Data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret %s", key, path)
	}
	strValue, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("value for key '%s' is not a string in secret %s", key, path)
	}
	vc.logger.Debug("String secret retrieved from Vault",
		"path", path, "key", key, "masked_value", maskSecret(strValue))
	return strValue, nil
}

func maskSecret(value string) string {
	if len(value) > 8 {
		return value[:4] + "****" + value[len(value)-4:]
	}
	if len(value) > 0 {
		return "****"
	}
	return value
}

// GetStringSliceSecret retrieves a comma-separated string as a slice.
func (vc *VaultClient) GetStringSliceSecret(path, key string) ([]string, error) {
	value, err := vc.GetStringSecret(path, key)
	if err != nil {
		return nil, err
	}
	if value == "" {
		return []string{}, nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, len(parts))
	for i, part := range parts {
		result[i] = strings.TrimSpace(part)
	}
	return result, nil
}

// ApplyVaultSecrets loads the configured secrets from Vault and applies
// them to the config in place. A disabled Vault section is a no-op.
func ApplyVaultSecrets(config *Config, logger *errors.Logger) error {
	if !config.Vault.Enabled {
		logger.Debug("Vault integration disabled, skipping secret loading")
		return nil
	}

	client, err := NewVaultClient(config.Vault, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}
	if client == nil {
		return nil
	}

	secrets := config.Vault.Secrets
	if err := loadAPIKeysFromVault(client, config, secrets.APIKeys, logger); err != nil {
		return err
	}
	if err := loadGeminiKeyFromVault(client, config, secrets.GeminiKey, logger); err != nil {
		return err
	}
	if err := loadGitHubTokenFromVault(client, config, secrets.GitHubToken, logger); err != nil {
		return err
	}
	if err := loadTLSCertsFromVault(client, config, secrets.TLSCerts, logger); err != nil {
		return err
	}

	logger.Info("Applied secrets from Vault")
	return nil
}

func loadAPIKeysFromVault(client *VaultClient, config *Config, path string, logger *errors.Logger) error {
	if path == "" {
		return nil
	}
	apiKeys, err := client.GetStringSliceSecret(path, "keys")
	if err != nil {
		return fmt.Errorf("failed to load API keys from vault: %w", err)
	}
	if len(apiKeys) == 0 {
		logger.Warn("No API keys found in Vault", "path", path)
		return nil
	}
	config.Server.APIKeys = apiKeys
	logger.Info("API keys loaded from Vault", "count", len(apiKeys))
	return nil
}

func loadGeminiKeyFromVault(client *VaultClient, config *Config, path string, logger *errors.Logger) error {
	if path == "" {
		return nil
	}
	geminiKey, err := client.GetStringSecret(path, "api_key")
	if err != nil {
		return fmt.Errorf("failed to load Gemini API key from vault: %w", err)
	}
	if geminiKey == "" {
		logger.Warn("Empty Gemini API key found in Vault", "path", path)
		return nil
	}
	applyGeminiKeyToConfig(config, geminiKey)
	logger.Info("Gemini API key loaded from Vault and applied to all AI configurations")
	return nil
}

// applyGeminiKeyToConfig sets the shared key and fills in any per-operation
// key that was not configured explicitly.
func applyGeminiKeyToConfig(config *Config, geminiKey string) {
	config.AI.APIKey = geminiKey
	if config.AI.Tailor.APIKey == "" {
		config.AI.Tailor.APIKey = geminiKey
	}
	if config.AI.Letter.APIKey == "" {
		config.AI.Letter.APIKey = geminiKey
	}
	if config.AI.Analyze.APIKey == "" {
		config.AI.Analyze.APIKey = geminiKey
	}
	if config.AI.Extract.APIKey == "" {
		config.AI.Extract.APIKey = geminiKey
	}
}

func loadGitHubTokenFromVault(client *VaultClient, config *Config, path string, logger *errors.Logger) error {
	if path == "" {
		return nil
	}
	token, err := client.GetStringSecret(path, "token")
	if err != nil {
		return fmt.Errorf("failed to load GitHub token from vault: %w", err)
	}
	if token != "" {
		config.GitHub.Token = token
		logger.Info("GitHub token loaded from Vault")
	}
	return nil
}

func loadTLSCertsFromVault(client *VaultClient, config *Config, path string, logger *errors.Logger) error {
	if path == "" {
		return nil
	}
	tlsData, err := client.GetSecretV2(path)
	if err != nil {
		return fmt.Errorf("failed to load TLS certificates from vault: %w", err)
	}

	certCount := loadTLSCertificateContent(config, tlsData, logger)
	if err := validateTLSDeprecatedFields(tlsData, logger); err != nil {
		return err
	}

	logger.Info("TLS certificates loaded from Vault", "certificates_loaded", certCount)
	return nil
}

func loadTLSCertificateContent(config *Config, tlsData *VaultSecret, logger *errors.Logger) int {
	certCount := 0
	certCount += loadSingleCertificate(tlsData, "cert", &config.Server.TLS.CertContent, "TLS certificate content", logger)
	certCount += loadSingleCertificate(tlsData, "key", &config.Server.TLS.KeyContent, "TLS private key content", logger)
	certCount += loadSingleCertificate(tlsData, "ca", &config.Server.TLS.CAContent, "TLS CA certificate content", logger)
	return certCount
}

func loadSingleCertificate(tlsData *VaultSecret, key string, target *string, description string, logger *errors.Logger) int {
	content, ok := tlsData.Data[key].(string)
	if !ok || content == "" {
		return 0
	}
	*target = content
	logger.Debug(description+" loaded from Vault", "content_length", len(content))
	return 1
}

// validateTLSDeprecatedFields rejects file-path style TLS fields. Vault
// secrets must carry certificate content, never host paths.
func validateTLSDeprecatedFields(tlsData *VaultSecret, logger *errors.Logger) error {
	for _, field := range []string{"cert_file", "key_file", "ca_file"} {
		if _, hasField := tlsData.Data[field]; hasField {
			logger.Warn("Deprecated Vault TLS field present", "field", field)
			return fmt.Errorf("vault TLS configuration error: '%s' field is no longer supported. Store certificate content in '%s' field instead",
				field, strings.TrimSuffix(field, "_file"))
		}
	}
	return nil
}
