// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"os"

	"github.com/blinklabs-io/canopy/database/sops"
	"github.com/spf13/cobra"
)

func configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Config file helpers",
	}
	cmd.AddCommand(configCryptCommand(
		"encrypt",
		"Encrypt a config file with SOPS master keys from "+sops.EnvAgeRecipients+", "+sops.EnvAwsKmsKeyArns+" or "+sops.EnvGcpKmsResourceId,
		sops.Encrypt,
	))
	cmd.AddCommand(configCryptCommand(
		"decrypt",
		"Decrypt a SOPS encrypted config file",
		sops.Decrypt,
	))
	return cmd
}

func configCryptCommand(
	name string,
	short string,
	fn func([]byte) ([]byte, error),
) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   name + " <file>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			out, err := fn(buf)
			if err != nil {
				return fmt.Errorf("%s %s: %w", name, args[0], err)
			}
			if output == "" {
				_, err = os.Stdout.Write(out)
				return err
			}
			return os.WriteFile(output, out, 0o600)
		},
	}
	cmd.Flags().
		StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}
