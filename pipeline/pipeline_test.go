// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cheriboot.sh/artifact"
	"cheriboot.sh/config"
	"cheriboot.sh/make"
	"cheriboot.sh/pipeline"
	"cheriboot.sh/stack"
)

// invocation is one recorded external tool call.
type invocation struct {
	tool string
	dir  string
	args []string
}

func (inv invocation) hasArg(prefix string) bool {
	for _, arg := range inv.args {
		if strings.HasPrefix(arg, prefix) {
			return true
		}
	}

	return false
}

// fakeRunner records every invocation and fabricates build artifacts through
// per-test callbacks instead of running anything.
type fakeRunner struct {
	t         *testing.T
	calls     []invocation
	onMake    func(inv invocation) error
	onCommand func(inv invocation) error
}

func (r *fakeRunner) Make(_ context.Context, dir string, _ map[string]string, mopts ...make.MakeOption) error {
	mo, err := make.NewMakeOptions(mopts...)
	if err != nil {
		r.t.Fatal(err)
	}

	inv := invocation{tool: "make", dir: dir, args: mo.Vars()}
	r.calls = append(r.calls, inv)

	if r.onMake != nil {
		return r.onMake(inv)
	}

	return nil
}

func (r *fakeRunner) Command(_ context.Context, dir string, _ map[string]string, bin string, args ...string) error {
	inv := invocation{tool: filepath.Base(bin), dir: dir, args: args}
	r.calls = append(r.calls, inv)

	if r.onCommand != nil {
		return r.onCommand(inv)
	}

	return nil
}

func touch(t *testing.T, path string, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// newWorkdir fabricates checkouts so the pipeline's preconditions hold.
func newWorkdir(t *testing.T, repos ...string) string {
	t.Helper()

	workdir := t.TempDir()
	for _, name := range repos {
		if err := os.MkdirAll(filepath.Join(workdir, "external", name), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	return workdir
}

func newPipeline(t *testing.T, cfg *config.Config, runner pipeline.Runner, popts ...pipeline.PipelineOption) *pipeline.Pipeline {
	t.Helper()

	if cfg.Jobs == 0 {
		cfg.Jobs = 4
	}

	popts = append([]pipeline.PipelineOption{pipeline.WithRunner(runner)}, popts...)

	p, err := pipeline.NewPipeline(cfg, popts...)
	if err != nil {
		t.Fatal("NewPipeline:", err)
	}

	return p
}

func assertRoles(t *testing.T, set artifact.Set, roles ...artifact.Role) {
	t.Helper()

	if len(set) != len(roles) {
		t.Errorf("expected %d artifacts, got %d: %v", len(roles), len(set), set)
	}

	for _, role := range roles {
		path, ok := set[role]
		if !ok {
			t.Errorf("missing artifact role %s", role)
			continue
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("artifact %s not on disk: %v", role, err)
		}
	}
}

func baremetalTarget() *stack.Target {
	return &stack.Target{
		Name: "hello",
		Kind: stack.KindBaremetal,
		Baremetal: &stack.BaremetalSpec{
			AppRepo:       "hello-app",
			AppMakeTarget: "all",
			AppELF:        "build/hello.elf",
			AppBin:        "build/hello.bin",
			Platform:      "fpga/cva6",
		},
	}
}

func TestBaremetalPayloadIsPlacedPath(t *testing.T) {
	workdir := newWorkdir(t, "hello-app", "opensbi")
	appDir := filepath.Join(workdir, "external", "hello-app")
	opensbiDir := filepath.Join(workdir, "external", "opensbi")

	fr := &fakeRunner{t: t}
	fr.onMake = func(inv invocation) error {
		switch {
		case inv.dir == appDir:
			touch(t, filepath.Join(appDir, "build", "hello.elf"), "elf")
			touch(t, filepath.Join(appDir, "build", "hello.bin"), "bin")
		case inv.dir == opensbiDir && inv.hasArg("PLATFORM="):
			touch(t, filepath.Join(opensbiDir, "build", "fpga", "cva6", "firmware", "fw_payload.bin"), "fw")
			touch(t, filepath.Join(opensbiDir, "build", "fpga", "cva6", "firmware", "fw_payload.elf"), "fwelf")
		}
		return nil
	}

	result, err := newPipeline(t, &config.Config{Workdir: workdir}, fr).Build(context.Background(), baremetalTarget())
	if err != nil {
		t.Fatal("Build:", err)
	}

	assertRoles(t, result.Artifacts,
		artifact.ELF, artifact.Bin, artifact.FirmwareBin, artifact.FirmwareELF)

	// The firmware must embed the copied ELF from the output directory, not
	// the one inside the application's build tree.
	wantPayload := "FW_PAYLOAD_PATH=" + filepath.Join(workdir, "output", "hello", "hello.elf")

	var found bool
	for _, inv := range fr.calls {
		if inv.tool == "make" && inv.hasArg("FW_PAYLOAD_PATH=") {
			found = true
			if !inv.hasArg(wantPayload) {
				t.Errorf("firmware payload is not the placed path: %v", inv.args)
			}
		}
	}
	if !found {
		t.Error("no OpenSBI invocation carried a payload")
	}
}

func TestBaremetalMissingArtifactAbortsChain(t *testing.T) {
	workdir := newWorkdir(t, "hello-app", "opensbi")

	// The application make "succeeds" but never produces the ELF.
	fr := &fakeRunner{t: t}

	_, err := newPipeline(t, &config.Config{Workdir: workdir}, fr).Build(context.Background(), baremetalTarget())
	if !errors.Is(err, artifact.ErrMissing) {
		t.Fatalf("expected ErrMissing, got %v", err)
	}

	// The firmware step must never have started.
	if len(fr.calls) != 1 {
		t.Errorf("expected the run to stop after the first step, saw %d calls", len(fr.calls))
	}
}

func TestBaremetalRerunIsIdempotent(t *testing.T) {
	workdir := newWorkdir(t, "hello-app", "opensbi")
	appDir := filepath.Join(workdir, "external", "hello-app")
	opensbiDir := filepath.Join(workdir, "external", "opensbi")

	run := 0
	fr := &fakeRunner{t: t}
	fr.onMake = func(inv invocation) error {
		switch {
		case inv.dir == appDir:
			touch(t, filepath.Join(appDir, "build", "hello.elf"), fmt.Sprintf("elf-%d", run))
			touch(t, filepath.Join(appDir, "build", "hello.bin"), "bin")
		case inv.dir == opensbiDir && inv.hasArg("PLATFORM="):
			touch(t, filepath.Join(opensbiDir, "build", "fpga", "cva6", "firmware", "fw_payload.bin"), "fw")
		}
		return nil
	}

	p := newPipeline(t, &config.Config{Workdir: workdir}, fr)

	for run = 0; run < 2; run++ {
		result, err := p.Build(context.Background(), baremetalTarget())
		if err != nil {
			t.Fatalf("run %d: %v", run, err)
		}

		data, err := os.ReadFile(result.Artifacts[artifact.ELF])
		if err != nil {
			t.Fatal(err)
		}
		if want := fmt.Sprintf("elf-%d", run); string(data) != want {
			t.Errorf("run %d: output not refreshed, got %q", run, data)
		}
	}
}

func TestBaoBundleChain(t *testing.T) {
	workdir := newWorkdir(t, "guest-app", "bao-hypervisor", "opensbi")
	guestDir := filepath.Join(workdir, "external", "guest-app")
	baoDir := filepath.Join(workdir, "external", "bao-hypervisor")
	opensbiDir := filepath.Join(workdir, "external", "opensbi")

	target := &stack.Target{
		Name: "bao-demo",
		Kind: stack.KindBaoBundle,
		Bao: &stack.BaoBundleSpec{
			GuestRepo:       "guest-app",
			GuestMakeTarget: "all",
			GuestELF:        "build/guest.elf",
			BaoRepo:         "bao-hypervisor",
			BaoConfig:       "cva6-baremetal",
			BaoELF:          "bin/cva6/bao.elf",
			Platform:        "fpga/cva6",
		},
	}

	fr := &fakeRunner{t: t}
	fr.onMake = func(inv invocation) error {
		switch {
		case inv.dir == guestDir:
			touch(t, filepath.Join(guestDir, "build", "guest.elf"), "guest")
		case inv.dir == baoDir:
			if !inv.hasArg("CONFIG=cva6-baremetal") {
				t.Errorf("bao build lacks CONFIG: %v", inv.args)
			}
			touch(t, filepath.Join(baoDir, "bin", "cva6", "bao.elf"), "bao")
		case inv.dir == opensbiDir && inv.hasArg("PLATFORM="):
			touch(t, filepath.Join(opensbiDir, "build", "fpga", "cva6", "firmware", "fw_payload.bin"), "fw")
		}
		return nil
	}

	result, err := newPipeline(t, &config.Config{Workdir: workdir}, fr).Build(context.Background(), target)
	if err != nil {
		t.Fatal("Build:", err)
	}

	assertRoles(t, result.Artifacts, artifact.ELF, artifact.FirmwareBin)

	// The hypervisor, not the guest, is the firmware payload.
	wantPayload := "FW_PAYLOAD_PATH=" + filepath.Join(workdir, "output", "bao-demo", "bao.elf")

	for _, inv := range fr.calls {
		if inv.tool == "make" && inv.hasArg("FW_PAYLOAD_PATH=") && !inv.hasArg(wantPayload) {
			t.Errorf("firmware payload is not the placed bao ELF: %v", inv.args)
		}
	}

	// The guest ELF was still placed alongside.
	if _, err := os.Stat(filepath.Join(workdir, "output", "bao-demo", "guest.elf")); err != nil {
		t.Errorf("guest ELF not placed: %v", err)
	}
}

// cheriBSDFixture fabricates checkouts, a cheribuild output tree with an SDK
// inside it, and a fakeRunner whose callbacks drop each stage's artifacts.
type cheriBSDFixture struct {
	workdir string
	sdkRoot string
	fr      *fakeRunner
}

func newCheriBSDFixture(t *testing.T) *cheriBSDFixture {
	t.Helper()

	workdir := newWorkdir(t, "uboot", "opensbi", "cheribuild")
	ubootDir := filepath.Join(workdir, "external", "uboot")
	opensbiDir := filepath.Join(workdir, "external", "opensbi")

	t.Setenv("CHERIBUILD_SDK", "")

	// Fabricated cheribuild output tree: the SDK with its own objcopy plus
	// the kernel the fake cheribuild run drops next to it.
	cheriOut := t.TempDir()
	sdkRoot := filepath.Join(cheriOut, "sdk")
	touch(t, filepath.Join(sdkRoot, "sysroot-riscv64-purecap", ".keep"), "")
	touch(t, filepath.Join(sdkRoot, "bin", "llvm-objcopy"), "#!/bin/sh\n")

	fr := &fakeRunner{t: t}
	fr.onMake = func(inv invocation) error {
		switch {
		case inv.dir == ubootDir && len(inv.args) == 0:
			touch(t, filepath.Join(ubootDir, "u-boot.bin"), "uboot")
			touch(t, filepath.Join(ubootDir, "u-boot"), "ubootelf")
		case inv.dir == opensbiDir && inv.hasArg("PLATFORM="):
			touch(t, filepath.Join(opensbiDir, "build", "fpga", "cva6", "firmware", "fw_payload.bin"), "fw")
		}
		return nil
	}
	fr.onCommand = func(inv invocation) error {
		switch inv.tool {
		case "cheribuild.py":
			touch(t, filepath.Join(cheriOut, stack.DefaultKernelPath), "kernel")
		case "llvm-objcopy":
			touch(t, inv.args[len(inv.args)-1], "rawkernel")
		case "gzip":
			touch(t, inv.args[len(inv.args)-1]+".gz", "gz")
		case "mkimage":
			touch(t, inv.args[len(inv.args)-1], "uimage")
		}
		return nil
	}

	return &cheriBSDFixture{workdir: workdir, sdkRoot: sdkRoot, fr: fr}
}

// target builds a cheribsd target whose per-target SDK root is sdkRoot,
// possibly empty.
func (f *cheriBSDFixture) target(sdkRoot string) *stack.Target {
	return &stack.Target{
		Name: "cheribsd-purecap",
		Kind: stack.KindCheriBSD,
		CheriBSD: &stack.CheriBSDSpec{
			SDKTarget:        stack.DefaultSDKTarget,
			CheribuildTarget: "cheribsd-riscv64-purecap",
			UBootDefconfig:   "cheri_cva6_defconfig",
			Platform:         "fpga/cva6",
			KernelPath:       stack.DefaultKernelPath,
			RootfsImage:      stack.DefaultRootfsImage,
			SDKRoot:          sdkRoot,
		},
	}
}

func TestCheriBSDFiveStageChain(t *testing.T) {
	f := newCheriBSDFixture(t)
	workdir := f.workdir
	outDir := filepath.Join(workdir, "output", "cheribsd-purecap")
	fr := f.fr

	result, err := newPipeline(t, &config.Config{Workdir: workdir}, fr,
		pipeline.WithGzip(true),
		pipeline.WithUseBin(true),
	).Build(context.Background(), f.target(f.sdkRoot))
	if err != nil {
		t.Fatal("Build:", err)
	}

	// The firmware embeds the placed u-boot.bin from the output directory.
	for _, inv := range fr.calls {
		if inv.tool == "make" && inv.hasArg("FW_PAYLOAD_PATH=") &&
			!inv.hasArg("FW_PAYLOAD_PATH="+filepath.Join(outDir, "u-boot.bin")) {
			t.Errorf("firmware payload is not the placed u-boot.bin: %v", inv.args)
		}
	}

	assertRoles(t, result.Artifacts,
		artifact.UBootBin, artifact.UBootELF,
		artifact.FirmwareBin, artifact.KernelELF,
		artifact.KernelBin, artifact.UImage)

	// The stages run strictly in boot chain order.
	var tools []string
	for _, inv := range fr.calls {
		tools = append(tools, inv.tool)
	}

	want := []string{
		"make", "make", "make", // u-boot: distclean, defconfig, build
		"make", "make", // opensbi: distclean, platform+payload
		"cheribuild.py",
		"llvm-objcopy",
		"gzip",
		"mkimage",
	}
	if len(tools) != len(want) {
		t.Fatalf("expected %d invocations %v, got %v", len(want), want, tools)
	}
	for i := range want {
		if tools[i] != want[i] {
			t.Fatalf("stage %d: expected %s, got %s (%v)", i, want[i], tools[i], tools)
		}
	}

	// With use-bin and gzip the uImage wraps the compressed raw kernel.
	mkimage := fr.calls[len(fr.calls)-1]
	if !mkimage.hasArg(filepath.Join(outDir, "kernel.bin.gz")) {
		t.Errorf("mkimage input is not the gzipped raw kernel: %v", mkimage.args)
	}

	var comp string
	for i, arg := range mkimage.args {
		if arg == "-C" && i+1 < len(mkimage.args) {
			comp = mkimage.args[i+1]
		}
	}
	if comp != "gzip" {
		t.Errorf("expected -C gzip, got %q", comp)
	}

	if got := result.Artifacts[artifact.UImage]; got != filepath.Join(outDir, "CheriBSD") {
		t.Errorf("unexpected uImage path %q", got)
	}
}

func TestCheriBSDConfiguredSDKRoot(t *testing.T) {
	f := newCheriBSDFixture(t)

	// No per-target root: the tool-level configured root must carry the
	// resolution instead.
	cfg := &config.Config{Workdir: f.workdir}
	cfg.SDK.Root = f.sdkRoot

	result, err := newPipeline(t, cfg, f.fr,
		pipeline.WithGzip(true),
		pipeline.WithUseBin(true),
	).Build(context.Background(), f.target(""))
	if err != nil {
		t.Fatal("Build:", err)
	}

	assertRoles(t, result.Artifacts,
		artifact.UBootBin, artifact.UBootELF,
		artifact.FirmwareBin, artifact.KernelELF,
		artifact.KernelBin, artifact.UImage)
}

func TestMissingCheckoutNamesRemedy(t *testing.T) {
	workdir := newWorkdir(t)

	_, err := newPipeline(t, &config.Config{Workdir: workdir}, &fakeRunner{t: t}).Build(context.Background(), baremetalTarget())
	if !errors.Is(err, pipeline.ErrMissingCheckout) {
		t.Fatalf("expected ErrMissingCheckout, got %v", err)
	}
	if !strings.Contains(err.Error(), "cheriboot clone") {
		t.Errorf("error does not name the remedial command: %v", err)
	}
}
