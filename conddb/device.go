// Copyright 2026 The go-daq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package conddb

import "fmt"

// DeviceConfig is the registration of one EVG card.
type DeviceConfig struct {
	Name      string `json:"name"`
	IP        string `json:"ip"`
	Port      int    `json:"port"`
	Frequency uint32 `json:"frequency"` // reference frequency, in Hz
}

func (cfg DeviceConfig) String() string {
	return fmt.Sprintf("%s @ %s:%d (%d Hz)", cfg.Name, cfg.IP, cfg.Port, cfg.Frequency)
}
