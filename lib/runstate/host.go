// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package runstate

import (
	"context"
	"os"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
)

// DescribeHost returns the hostname and a "platform version" string for
// the machine the sampler runs on. Lookup failures leave the
// corresponding value empty.
func DescribeHost(ctx context.Context) (hostname, platform string) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		hostname, _ = os.Hostname()
		return hostname, ""
	}
	hostname = info.Hostname
	if hostname == "" {
		hostname, _ = os.Hostname()
	}
	platform = strings.TrimSpace(info.Platform + " " + info.PlatformVersion)
	return hostname, platform
}
