// Package cmd wires the adjanitor subcommands.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"adjanitor/activedirectory"
	"adjanitor/config"
	"adjanitor/logger"

	"github.com/f0oster/gontsd/resolve"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfgFile    string
	logLevel   string
	debugLog   bool
	outputPath string
	overwrite  bool
)

var rootCmd = &cobra.Command{
	Use:           "adjanitor",
	Short:         "Active Directory hygiene and inventory reports",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "settings.env", "env file with directory and WinRM settings")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputPath, "output", "o", "", "CSV report path (console only when empty)")
	rootCmd.PersistentFlags().BoolVar(&overwrite, "overwrite", false, "replace an existing report file")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup resolves configuration and the process logger once, before any
// directory or machine operation.
func setup() (config.Configuration, zerolog.Logger, error) {
	log := logger.New(logLevel, debugLog)

	cfg, err := config.LoadEnvConfig(cfgFile)
	if err != nil {
		return config.Configuration{}, log, err
	}

	return cfg, log, nil
}

// connectDirectory binds to the domain controller and discovers the naming
// context and domain SID.
func connectDirectory(cfg config.Configuration, log zerolog.Logger) (*activedirectory.ActiveDirectoryInstance, error) {
	ad := activedirectory.NewActiveDirectoryInstance(cfg.BaseDN, cfg.DcFQDN, cfg.PageSize, logger.WithComponent(log, "activedirectory"))

	if err := ad.Connect(cfg.Username, cfg.Password); err != nil {
		return nil, err
	}

	if err := ad.DiscoverNamingContext(); err != nil {
		ad.Close()
		return nil, err
	}

	if err := ad.FetchDomainSID(); err != nil {
		ad.Close()
		return nil, err
	}

	return ad, nil
}

// buildSIDResolver chains well-known SID resolution with an LDAP lookup,
// falling back to well-known only when the directory client cannot be built.
func buildSIDResolver(cfg config.Configuration, baseDN string, log zerolog.Logger) resolve.SIDResolver {
	ldapServer := cfg.DcFQDN
	if !strings.HasPrefix(ldapServer, "ldap://") && !strings.HasPrefix(ldapServer, "ldaps://") {
		ldapServer = "ldap://" + ldapServer + ":389"
	}

	ldapClient, err := resolve.NewLDAPClient(resolve.LDAPConfig{
		Server:   ldapServer,
		BaseDN:   baseDN,
		BindDN:   cfg.Username,
		Password: cfg.Password,
		UseTLS:   false,
	})
	if err != nil {
		log.Warn().Err(err).Msg("LDAP SID resolution unavailable, using well-known SIDs only")
		return resolve.WellKnownSIDResolver{}
	}

	return resolve.ChainSIDResolver{
		Resolvers: []resolve.SIDResolver{
			resolve.WellKnownSIDResolver{},
			resolve.NewLDAPSIDResolver(ldapClient),
		},
	}
}
