// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package stack

// Board describes one CVA6 FPGA configuration of the hardware design
// repository.
type Board struct {
	Name        string `yaml:"-"`
	Description string `yaml:"description"`

	// BoardName is the BOARD= value handed to the hardware makefile.
	BoardName string `yaml:"board"`

	// CoreTarget is the CVA6 target= configuration string.
	CoreTarget string `yaml:"target"`

	// MakeTarget is the makefile goal producing the bitstream.
	MakeTarget string `yaml:"make_target"`

	// Bitfile is the produced bitstream, relative to the hardware checkout.
	Bitfile string `yaml:"bitfile"`

	// FlashScript is the Vivado TCL flashing script, relative to the hardware
	// checkout.
	FlashScript string `yaml:"flash_script"`
}

// Board defaults for the Genesys2 CVA6-CHERI reference design.
const (
	DefaultBoardName   = "genesys2"
	DefaultCoreTarget  = "cv64a6_imafdchzcheri_sv39"
	DefaultMakeTarget  = "fpga"
	DefaultBitfile     = "build/fpga/cv64a6_imafdchzcheri_sv39/genesys2.bit"
	DefaultFlashScript = "fpga/scripts/program_genesys2.tcl"
)

func (b *Board) applyDefaults() {
	if len(b.BoardName) == 0 {
		b.BoardName = DefaultBoardName
	}
	if len(b.CoreTarget) == 0 {
		b.CoreTarget = DefaultCoreTarget
	}
	if len(b.MakeTarget) == 0 {
		b.MakeTarget = DefaultMakeTarget
	}
	if len(b.Bitfile) == 0 {
		b.Bitfile = DefaultBitfile
	}
	if len(b.FlashScript) == 0 {
		b.FlashScript = DefaultFlashScript
	}
}
