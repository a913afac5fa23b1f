package config

import "testing"

// stubKeyring replaces the OS keyring lookup for the duration of a test.
func stubKeyring(t *testing.T, values map[string]string) {
	t.Helper()
	orig := keyringLookup
	keyringLookup = func(key string) string { return values[key] }
	t.Cleanup(func() { keyringLookup = orig })
}

func TestResolveSecretsPriorityChain(t *testing.T) {
	cases := []struct {
		name    string
		env     string
		keyring string
		yaml    string
		want    string
	}{
		{"env wins over everything", "from-env", "from-keyring", "from-yaml", "from-env"},
		{"keyring wins over config", "", "from-keyring", "from-yaml", "from-keyring"},
		{"config is the last resort", "", "", "from-yaml", "from-yaml"},
		{"nothing set stays empty", "", "", "", ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Setenv(envDiscordToken, c.env)
			stubKeyring(t, map[string]string{KeyDiscordToken: c.keyring})

			cfg := Default()
			cfg.Channels.Discord.Token = c.yaml
			resolveSecrets(cfg)

			if cfg.Channels.Discord.Token != c.want {
				t.Errorf("resolved token = %q, want %q", cfg.Channels.Discord.Token, c.want)
			}
		})
	}
}
