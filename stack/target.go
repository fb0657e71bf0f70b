// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package stack

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Target identifies one buildable software stack.  Exactly one of the
// kind-specific spec attributes is non-nil, matching Kind.  Targets are
// constructed once at catalog-load time and immutable thereafter.
type Target struct {
	Name string
	Kind Kind

	Baremetal *BaremetalSpec
	Bao       *BaoBundleSpec
	CheriBSD  *CheriBSDSpec
}

// BaremetalSpec configures an OpenSBI + baremetal application bundle.
type BaremetalSpec struct {
	// AppRepo is the catalog repository name of the baremetal application.
	AppRepo string `mapstructure:"app_repo"`

	// AppMakeTarget is the make target building the application.
	AppMakeTarget string `mapstructure:"app_make_target"`

	// AppELF is the built ELF, relative to the application checkout.
	AppELF string `mapstructure:"app_elf"`

	// AppBin optionally names a raw binary built alongside the ELF.
	AppBin string `mapstructure:"app_bin"`

	// Platform is the OpenSBI PLATFORM= identifier.
	Platform string `mapstructure:"opensbi_platform"`
}

// BaoBundleSpec configures an OpenSBI + Bao hypervisor + guest bundle.
type BaoBundleSpec struct {
	// GuestRepo is the catalog repository name of the guest application.
	GuestRepo string `mapstructure:"guest_repo"`

	// GuestMakeTarget is the make target building the guest.
	GuestMakeTarget string `mapstructure:"guest_make_target"`

	// GuestELF is the built guest ELF, relative to the guest checkout.
	GuestELF string `mapstructure:"guest_elf"`

	// BaoRepo is the catalog repository name of the Bao hypervisor.
	BaoRepo string `mapstructure:"bao_repo"`

	// BaoConfig is the CONFIG= value selecting the Bao platform/VM layout.
	// Its build incorporates the guest image.
	BaoConfig string `mapstructure:"bao_config"`

	// BaoELF is the built hypervisor ELF, relative to the Bao checkout.
	BaoELF string `mapstructure:"bao_elf"`

	// Platform is the OpenSBI PLATFORM= identifier.
	Platform string `mapstructure:"opensbi_platform"`
}

// CheriBSDSpec configures a full CheriBSD OS stack with a U-Boot + OpenSBI
// boot chain.
type CheriBSDSpec struct {
	// SDKTarget is the cheribuild target producing the SDK.
	SDKTarget string `mapstructure:"sdk_target"`

	// CheribuildTarget is the cheribuild target producing the OS image.
	CheribuildTarget string `mapstructure:"cheribuild_target"`

	// UBootDefconfig selects the U-Boot board configuration.
	UBootDefconfig string `mapstructure:"uboot_defconfig"`

	// Platform is the OpenSBI PLATFORM= identifier.
	Platform string `mapstructure:"opensbi_platform"`

	// KernelPath is the kernel ELF, relative to the cheribuild output
	// directory.
	KernelPath string `mapstructure:"kernel_path"`

	// RootfsImage is the rootfs image written to SD cards, relative to the
	// cheribuild output directory.
	RootfsImage string `mapstructure:"rootfs_img"`

	// SDKRoot optionally overrides the resolved SDK root for this target.
	SDKRoot string `mapstructure:"sdk_root"`
}

// Defaults applied where the catalog leaves a field empty.
const (
	DefaultSDKTarget       = "sdk-riscv64-purecap"
	DefaultAppMakeTarget   = "all"
	DefaultGuestMakeTarget = "all"
	DefaultKernelPath      = "rootfs-riscv64-purecap/boot/kernel/kernel"
	DefaultRootfsImage     = "rootfs-riscv64-purecap.img"
)

// newTarget decodes the open key/value parameter map of one catalog entry
// into the typed spec matching its kind.  All required keys are checked here,
// at load time, so a misconfigured target fails before any build step runs.
func newTarget(name string, kind Kind, params map[string]interface{}) (*Target, error) {
	t := &Target{
		Name: name,
		Kind: kind,
	}

	decode := func(out interface{}) error {
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result: out,
		})
		if err != nil {
			return err
		}

		if err := dec.Decode(params); err != nil {
			return fmt.Errorf("target %q: %w", name, err)
		}

		return nil
	}

	switch kind {
	case KindBaremetal:
		spec := &BaremetalSpec{}
		if err := decode(spec); err != nil {
			return nil, err
		}
		if len(spec.AppMakeTarget) == 0 {
			spec.AppMakeTarget = DefaultAppMakeTarget
		}
		if err := requireParams(name, map[string]string{
			"app_repo":         spec.AppRepo,
			"app_elf":          spec.AppELF,
			"opensbi_platform": spec.Platform,
		}); err != nil {
			return nil, err
		}
		t.Baremetal = spec

	case KindBaoBundle:
		spec := &BaoBundleSpec{}
		if err := decode(spec); err != nil {
			return nil, err
		}
		if len(spec.GuestMakeTarget) == 0 {
			spec.GuestMakeTarget = DefaultGuestMakeTarget
		}
		if err := requireParams(name, map[string]string{
			"guest_repo":       spec.GuestRepo,
			"guest_elf":        spec.GuestELF,
			"bao_repo":         spec.BaoRepo,
			"bao_config":       spec.BaoConfig,
			"bao_elf":          spec.BaoELF,
			"opensbi_platform": spec.Platform,
		}); err != nil {
			return nil, err
		}
		t.Bao = spec

	case KindCheriBSD:
		spec := &CheriBSDSpec{}
		if err := decode(spec); err != nil {
			return nil, err
		}
		if len(spec.SDKTarget) == 0 {
			spec.SDKTarget = DefaultSDKTarget
		}
		if len(spec.KernelPath) == 0 {
			spec.KernelPath = DefaultKernelPath
		}
		if len(spec.RootfsImage) == 0 {
			spec.RootfsImage = DefaultRootfsImage
		}
		if err := requireParams(name, map[string]string{
			"cheribuild_target": spec.CheribuildTarget,
			"uboot_defconfig":   spec.UBootDefconfig,
			"opensbi_platform":  spec.Platform,
		}); err != nil {
			return nil, err
		}
		t.CheriBSD = spec

	default:
		return nil, fmt.Errorf("target %q: %w: %q", name, ErrUnknownKind, kind)
	}

	return t, nil
}

func requireParams(target string, params map[string]string) error {
	for key, val := range params {
		if len(val) == 0 {
			return fmt.Errorf("target %q: missing required parameter %q", target, key)
		}
	}

	return nil
}
