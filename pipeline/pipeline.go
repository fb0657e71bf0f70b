// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package pipeline sequences the per-kind build flows.  A pipeline run is a
// strictly ordered chain of build steps; each step invokes one external build
// system, verifies the files it promised, copies them into the target's
// output directory and hands the copied paths to the next step.  Later stages
// therefore embed output-directory artifacts, never files inside another
// build tree, and the output directory alone is the run's contract.
//
// Every run rebuilds from a clean tree.  There is no dependency tracking, no
// retry and no rollback: the first failing step aborts the run with its
// cause, which for external tools is the tool's own exit code.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"cheriboot.sh/artifact"
	"cheriboot.sh/config"
	"cheriboot.sh/log"
	"cheriboot.sh/sdk"
	"cheriboot.sh/stack"
)

// OutputDirName is the directory below the workdir collecting per-target
// build products.
const OutputDirName = "output"

// OutputDir returns the canonical output directory for a named target.
func OutputDir(workdir, target string) string {
	return filepath.Join(workdir, OutputDirName, target)
}

// Pipeline drives the build flow for software targets.
type Pipeline struct {
	workdir string
	runner  Runner
	jobs    int
	sdkRoot string

	loadAddr  string
	entryAddr string
	gzip      bool
	useBin    bool
}

type PipelineOption func(*Pipeline) error

// NewPipeline configures a pipeline rooted at the configured workdir.
func NewPipeline(cfg *config.Config, popts ...PipelineOption) (*Pipeline, error) {
	p := &Pipeline{
		workdir:   cfg.Workdir,
		runner:    NewRunner(),
		jobs:      cfg.Jobs,
		sdkRoot:   cfg.SDK.Root,
		loadAddr:  DefaultLoadAddr,
		entryAddr: DefaultEntryAddr,
	}

	if p.jobs <= 0 {
		p.jobs = config.DefaultJobs
	}

	for _, opt := range popts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// WithRunner substitutes the external tool runner.
func WithRunner(runner Runner) PipelineOption {
	return func(p *Pipeline) error {
		p.runner = runner
		return nil
	}
}

// WithJobs overrides the parallel job count handed to external builds.
func WithJobs(jobs int) PipelineOption {
	return func(p *Pipeline) error {
		if jobs > 0 {
			p.jobs = jobs
		}
		return nil
	}
}

// WithLoadAddr overrides the uImage load address.
func WithLoadAddr(addr string) PipelineOption {
	return func(p *Pipeline) error {
		if addr != "" {
			p.loadAddr = addr
		}
		return nil
	}
}

// WithEntryAddr overrides the uImage entry address.
func WithEntryAddr(addr string) PipelineOption {
	return func(p *Pipeline) error {
		if addr != "" {
			p.entryAddr = addr
		}
		return nil
	}
}

// WithGzip compresses the kernel before wrapping it into a uImage.
func WithGzip(gzip bool) PipelineOption {
	return func(p *Pipeline) error {
		p.gzip = gzip
		return nil
	}
}

// WithUseBin wraps the raw kernel binary instead of the ELF into the uImage.
func WithUseBin(useBin bool) PipelineOption {
	return func(p *Pipeline) error {
		p.useBin = useBin
		return nil
	}
}

// Result collects everything one pipeline run produced.
type Result struct {
	// Target is the built target's name.
	Target string

	// OutputDir is where the artifacts were placed.
	OutputDir string

	// Artifacts maps the boot-chain roles to their placed paths.  For kinds
	// with several artifacts of the same role, the role maps to the final
	// chain element; intermediates are still listed in Placed.
	Artifacts artifact.Set

	// Placed is every path copied into the output directory, in production
	// order.
	Placed []string
}

func (r *Result) record(set artifact.Set, order ...artifact.Role) {
	for _, role := range order {
		path, ok := set[role]
		if !ok {
			continue
		}

		r.Artifacts[role] = path
		r.Placed = append(r.Placed, path)
	}
}

// Build runs the ordered step sequence for the target's kind.
func (p *Pipeline) Build(ctx context.Context, target *stack.Target) (*Result, error) {
	result := &Result{
		Target:    target.Name,
		OutputDir: OutputDir(p.workdir, target.Name),
		Artifacts: artifact.Set{},
	}

	log.G(ctx).
		WithField("target", target.Name).
		WithField("kind", string(target.Kind)).
		Info("building software target")

	var err error

	switch target.Kind {
	case stack.KindBaremetal:
		err = p.buildBaremetal(ctx, target.Baremetal, result)
	case stack.KindBaoBundle:
		err = p.buildBaoBundle(ctx, target.Bao, result)
	case stack.KindCheriBSD:
		err = p.buildCheriBSD(ctx, target.CheriBSD, result)
	default:
		err = fmt.Errorf("%w: %q", stack.ErrUnknownKind, target.Kind)
	}

	if err != nil {
		return nil, err
	}

	log.G(ctx).
		WithField("dir", result.OutputDir).
		Info("build complete, artifacts placed")

	return result, nil
}

// buildBaremetal chains an application build into an OpenSBI firmware build,
// the application's placed ELF serving as the firmware payload.
func (p *Pipeline) buildBaremetal(ctx context.Context, spec *stack.BaremetalSpec, result *Result) error {
	appSet, err := p.buildApp(ctx, result.OutputDir, spec.AppRepo, spec.AppMakeTarget, spec.AppELF, spec.AppBin)
	if err != nil {
		return err
	}

	result.record(appSet, artifact.ELF, artifact.Bin)

	fwSet, err := p.buildOpenSBI(ctx, result.OutputDir, spec.Platform, appSet[artifact.ELF])
	if err != nil {
		return err
	}

	result.record(fwSet, artifact.FirmwareBin, artifact.FirmwareELF)

	return nil
}

// buildBaoBundle chains guest, hypervisor and firmware.  The Bao build
// incorporates the guest image itself; OpenSBI carries the hypervisor ELF as
// payload.
func (p *Pipeline) buildBaoBundle(ctx context.Context, spec *stack.BaoBundleSpec, result *Result) error {
	guestSet, err := p.buildApp(ctx, result.OutputDir, spec.GuestRepo, spec.GuestMakeTarget, spec.GuestELF, "")
	if err != nil {
		return err
	}

	if path, ok := guestSet[artifact.ELF]; ok {
		result.Placed = append(result.Placed, path)
	}

	baoSet, err := p.buildBao(ctx, result.OutputDir, spec.BaoRepo, spec.BaoConfig, spec.BaoELF)
	if err != nil {
		return err
	}

	result.record(baoSet, artifact.ELF)

	fwSet, err := p.buildOpenSBI(ctx, result.OutputDir, spec.Platform, baoSet[artifact.ELF])
	if err != nil {
		return err
	}

	result.record(fwSet, artifact.FirmwareBin, artifact.FirmwareELF)

	return nil
}

// buildCheriBSD runs the five stage OS flow: U-Boot, OpenSBI wrapping the
// placed u-boot.bin, the cheribuild OS image, a kernel objcopy and finally
// the mkimage wrap consumed by U-Boot at boot.
func (p *Pipeline) buildCheriBSD(ctx context.Context, spec *stack.CheriBSDSpec, result *Result) error {
	// The SDK is a precondition of the whole flow, so resolve it before
	// spending an hour inside the U-Boot and OpenSBI builds.  The per-target
	// root takes precedence over the tool-level configured one.
	sdkRoot, err := sdk.Resolve(ctx, sdk.DefaultStrategies("", spec.SDKRoot, p.sdkRoot)...)
	if err != nil {
		return err
	}

	ubootSet, err := p.buildUBoot(ctx, result.OutputDir, spec.UBootDefconfig)
	if err != nil {
		return err
	}

	result.record(ubootSet, artifact.UBootBin, artifact.UBootELF)

	fwSet, err := p.buildOpenSBI(ctx, result.OutputDir, spec.Platform, ubootSet[artifact.UBootBin])
	if err != nil {
		return err
	}

	result.record(fwSet, artifact.FirmwareBin, artifact.FirmwareELF)

	kernelSet, err := p.buildOS(ctx, result.OutputDir, sdkRoot, spec)
	if err != nil {
		return err
	}

	result.record(kernelSet, artifact.KernelELF)

	binSet, err := p.objcopyKernel(ctx, result.OutputDir, sdkRoot, kernelSet[artifact.KernelELF])
	if err != nil {
		return err
	}

	result.record(binSet, artifact.KernelBin)

	image := binSet[artifact.KernelBin]
	if !p.useBin {
		image = kernelSet[artifact.KernelELF]
	}

	uimageSet, err := p.mkimage(ctx, result.OutputDir, image)
	if err != nil {
		return err
	}

	result.record(uimageSet, artifact.UImage)

	return nil
}
