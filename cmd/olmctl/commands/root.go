package commands

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	logLevel string
	log      = logrus.New()
)

// Execute builds and runs the olmctl command tree.
func Execute() error {
	root := &cobra.Command{
		Use:   "olmctl",
		Short: "Inspect and exercise the olm two-party and group ratchets",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			log.SetLevel(lvl)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: trace, debug, info, warn, error")

	root.AddCommand(versionCmd(), accountCmd(), utilityCmd(), demoCmd())
	return root.Execute()
}
