// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cli/safeexec"

	"cheriboot.sh/artifact"
	"cheriboot.sh/log"
	"cheriboot.sh/make"
	"cheriboot.sh/repo"
	"cheriboot.sh/sdk"
	"cheriboot.sh/stack"
)

// Well-known checkout names of the boot chain components.
const (
	RepoOpenSBI    = "opensbi"
	RepoUBoot      = "uboot"
	RepoCheribuild = "cheribuild"
)

// Default uImage addresses for the CVA6 CheriBSD flow.  OpenSBI owns the
// region below 0x80200000, U-Boot relocates itself, so the kernel payload
// lands directly above the firmware.
const (
	DefaultLoadAddr  = "0x80200000"
	DefaultEntryAddr = "0x80200000"
)

// ErrMissingCheckout indicates a build step's source tree has not been cloned
// yet.
var ErrMissingCheckout = errors.New("source checkout not found")

// requireCheckout verifies a source tree exists before its build system is
// invoked, naming the remedial command otherwise.
func (p *Pipeline) requireCheckout(name string) (string, error) {
	dir := repo.Path(p.workdir, name)
	if !repo.Exists(p.workdir, name) {
		return "", fmt.Errorf("%w: %s (run 'cheriboot clone' first)", ErrMissingCheckout, dir)
	}

	return dir, nil
}

// buildApp builds a baremetal application or guest via its own makefile and
// places its ELF, plus a raw binary when the target configures one.
func (p *Pipeline) buildApp(ctx context.Context, outDir, repoName, makeTarget, elfRel, binRel string) (artifact.Set, error) {
	dir, err := p.requireCheckout(repoName)
	if err != nil {
		return nil, err
	}

	log.G(ctx).WithField("repo", repoName).Info("building application")

	if err := p.runner.Make(ctx, dir, nil,
		make.WithTarget(makeTarget),
		make.WithJobs(p.jobs),
	); err != nil {
		return nil, err
	}

	elf, err := artifact.Resolve(filepath.Join(dir, elfRel))
	if err != nil {
		return nil, err
	}

	set := artifact.Set{artifact.ELF: elf}

	if binRel != "" {
		if bin, ok := artifact.ResolveOptional(ctx, filepath.Join(dir, binRel)); ok {
			set[artifact.Bin] = bin
		}
	}

	return artifact.NewMaterializer(outDir).Place(ctx, set)
}

// buildBao builds the Bao hypervisor for one CONFIG, whose image layout
// already incorporates the guest, and places the resulting ELF.
func (p *Pipeline) buildBao(ctx context.Context, outDir, repoName, cfg, elfRel string) (artifact.Set, error) {
	dir, err := p.requireCheckout(repoName)
	if err != nil {
		return nil, err
	}

	log.G(ctx).WithField("config", cfg).Info("building Bao hypervisor")

	if err := p.runner.Make(ctx, dir, nil,
		make.WithVar("CONFIG", cfg),
		make.WithJobs(p.jobs),
	); err != nil {
		return nil, err
	}

	elf, err := artifact.Resolve(filepath.Join(dir, elfRel))
	if err != nil {
		return nil, err
	}

	return artifact.NewMaterializer(outDir).Place(ctx, artifact.Set{artifact.ELF: elf})
}

// buildOpenSBI builds the OpenSBI firmware with the given file linked in as
// fw_payload, after a distclean so stale payloads never survive.  The payload
// path always points into the output directory, never into another build
// tree.
func (p *Pipeline) buildOpenSBI(ctx context.Context, outDir, platform, payload string) (artifact.Set, error) {
	dir, err := p.requireCheckout(RepoOpenSBI)
	if err != nil {
		return nil, err
	}

	log.G(ctx).
		WithField("platform", platform).
		WithField("payload", payload).
		Info("building OpenSBI firmware")

	if err := p.runner.Make(ctx, dir, nil, make.WithTarget("distclean")); err != nil {
		return nil, err
	}

	mopts := []make.MakeOption{
		make.WithVar("PLATFORM", platform),
		make.WithJobs(p.jobs),
	}
	if payload != "" {
		mopts = append(mopts, make.WithVar("FW_PAYLOAD_PATH", payload))
	}

	if err := p.runner.Make(ctx, dir, nil, mopts...); err != nil {
		return nil, err
	}

	// Older OpenSBI trees built into build/<platform>, current ones below
	// build/platform/<platform>.
	fwBin, err := artifact.Resolve(
		filepath.Join(dir, "build", platform, "firmware", "fw_payload.bin"),
		filepath.Join(dir, "build", "platform", platform, "firmware", "fw_payload.bin"),
	)
	if err != nil {
		return nil, err
	}

	set := artifact.Set{artifact.FirmwareBin: fwBin}

	if fwELF, ok := artifact.ResolveOptional(ctx,
		filepath.Join(dir, "build", platform, "firmware", "fw_payload.elf"),
		filepath.Join(dir, "build", "platform", platform, "firmware", "fw_payload.elf"),
	); ok {
		set[artifact.FirmwareELF] = fwELF
	}

	return artifact.NewMaterializer(outDir).Place(ctx, set)
}

// buildUBoot builds U-Boot from a clean tree via its defconfig and places
// u-boot.bin, plus the ELF when present.
func (p *Pipeline) buildUBoot(ctx context.Context, outDir, defconfig string) (artifact.Set, error) {
	dir, err := p.requireCheckout(RepoUBoot)
	if err != nil {
		return nil, err
	}

	log.G(ctx).WithField("defconfig", defconfig).Info("building U-Boot")

	if err := p.runner.Make(ctx, dir, nil, make.WithTarget("distclean")); err != nil {
		return nil, err
	}

	if err := p.runner.Make(ctx, dir, nil, make.WithTarget(defconfig)); err != nil {
		return nil, err
	}

	if err := p.runner.Make(ctx, dir, nil, make.WithJobs(p.jobs)); err != nil {
		return nil, err
	}

	ubootBin, err := artifact.Resolve(filepath.Join(dir, "u-boot.bin"))
	if err != nil {
		return nil, err
	}

	set := artifact.Set{artifact.UBootBin: ubootBin}

	if ubootELF, ok := artifact.ResolveOptional(ctx, filepath.Join(dir, "u-boot")); ok {
		set[artifact.UBootELF] = ubootELF
	}

	return artifact.NewMaterializer(outDir).Place(ctx, set)
}

// buildOS runs the cheribuild OS target and places the kernel ELF from the
// cheribuild output tree.
func (p *Pipeline) buildOS(ctx context.Context, outDir, sdkRoot string, spec *stack.CheriBSDSpec) (artifact.Set, error) {
	dir, err := p.requireCheckout(RepoCheribuild)
	if err != nil {
		return nil, err
	}

	log.G(ctx).WithField("target", spec.CheribuildTarget).Info("building OS image via cheribuild")

	if err := p.runner.Command(ctx, dir, nil,
		"./cheribuild.py", spec.CheribuildTarget, "-d", fmt.Sprintf("-j%d", p.jobs),
	); err != nil {
		return nil, err
	}

	kernel, err := artifact.Resolve(filepath.Join(sdk.OutputDir(sdkRoot), spec.KernelPath))
	if err != nil {
		return nil, err
	}

	return artifact.NewMaterializer(outDir).Place(ctx, artifact.Set{artifact.KernelELF: kernel})
}

// BuildSDK runs the cheribuild SDK target, the long-running prerequisite of
// every cheribsd pipeline.
func (p *Pipeline) BuildSDK(ctx context.Context, sdkTarget string) error {
	dir, err := p.requireCheckout(RepoCheribuild)
	if err != nil {
		return err
	}

	if sdkTarget == "" {
		sdkTarget = stack.DefaultSDKTarget
	}

	log.G(ctx).WithField("target", sdkTarget).Info("building CHERI SDK via cheribuild")

	return p.runner.Command(ctx, dir, nil,
		"./cheribuild.py", sdkTarget, "-d", fmt.Sprintf("-j%d", p.jobs),
	)
}

// objcopyKernel strips the placed kernel ELF to a raw binary beside it.  The
// SDK's llvm-objcopy is preferred since it understands CHERI relocations; a
// PATH lookup is the fallback.
func (p *Pipeline) objcopyKernel(ctx context.Context, outDir, sdkRoot, kernel string) (artifact.Set, error) {
	objcopy := filepath.Join(sdkRoot, "bin", "llvm-objcopy")
	if _, err := os.Stat(objcopy); err != nil {
		objcopy, err = safeexec.LookPath("llvm-objcopy")
		if err != nil {
			return nil, fmt.Errorf("llvm-objcopy not found in SDK or PATH: %w", err)
		}
	}

	dest := kernel + ".bin"

	log.G(ctx).WithField("out", dest).Info("converting kernel ELF to raw binary")

	if err := p.runner.Command(ctx, outDir, nil, objcopy, "-O", "binary", kernel, dest); err != nil {
		return nil, err
	}

	if _, err := artifact.Resolve(dest); err != nil {
		return nil, err
	}

	// Written directly into the output directory, no placement needed.
	return artifact.Set{artifact.KernelBin: dest}, nil
}

// mkimage wraps the kernel into the uImage U-Boot loads at boot, optionally
// gzipped first.
func (p *Pipeline) mkimage(ctx context.Context, outDir, input string) (artifact.Set, error) {
	data := input
	comp := "none"

	if p.gzip {
		if err := p.runner.Command(ctx, outDir, nil, "gzip", "-f", "-k", input); err != nil {
			return nil, err
		}

		data = input + ".gz"
		comp = "gzip"

		if _, err := artifact.Resolve(data); err != nil {
			return nil, err
		}
	}

	out := filepath.Join(outDir, artifact.UImageName)

	log.G(ctx).WithField("out", out).Info("wrapping kernel into uImage")

	if err := p.runner.Command(ctx, outDir, nil, "mkimage",
		"-A", "riscv",
		"-O", "linux",
		"-T", "kernel",
		"-C", comp,
		"-a", p.loadAddr,
		"-e", p.entryAddr,
		"-n", "CheriBSD",
		"-d", data,
		out,
	); err != nil {
		return nil, err
	}

	if _, err := artifact.Resolve(out); err != nil {
		return nil, err
	}

	return artifact.Set{artifact.UImage: out}, nil
}
