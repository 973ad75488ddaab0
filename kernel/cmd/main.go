package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/Scusemua/go-utils/config"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"

	"github.com/scusemua/notebook-kernel/common/dispatch"
	"github.com/scusemua/notebook-kernel/common/jupyter"
	"github.com/scusemua/notebook-kernel/common/jupyter/messaging"
	"github.com/scusemua/notebook-kernel/common/metrics"
	"github.com/scusemua/notebook-kernel/common/utils"
	"github.com/scusemua/notebook-kernel/kernel"
	"github.com/scusemua/notebook-kernel/kernel/domain"
	"github.com/scusemua/notebook-kernel/testing/fake_kernel"
)

var (
	options      = domain.KernelOptions{}
	globalLogger = config.GetLogger("")
	sig          = make(chan os.Signal, 1)
)

func init() {
	// The interpreter owns the main goroutine, and some runtimes care about the OS thread too.
	runtime.LockOSThread()

	lipgloss.SetColorProfile(termenv.ANSI256)

	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGABRT)
	// Set default options.
	options.KernelName = domain.DefaultKernelName
}

// ValidateOptions ensures that the options/configuration is valid.
func ValidateOptions() {
	flags, err := config.ValidateOptions(&options)
	if errors.Is(err, config.ErrPrintUsage) {
		flags.PrintDefaults()
		os.Exit(0)
	} else if err != nil {
		log.Fatal(err)
	}

	if err := options.CheckUsage(); err != nil {
		flags.PrintDefaults()
		log.Fatal(err)
	}
}

func installKernelSpec() {
	executable, err := os.Executable()
	if err != nil {
		log.Fatalf("Could not locate the kernel executable: %v", err)
	}

	path, err := jupyter.InstallKernelSpec(options.KernelName, &jupyter.KernelSpec{
		Argv:        []string{executable, "--connection_file", "{connection_file}"},
		DisplayName: domain.DefaultDisplayName,
		Language:    fake_kernel.LanguageName,
	})
	if err != nil {
		log.Fatalf("Failed to install kernel spec: %v", err)
	}
	globalLogger.Info("Installed kernel spec %s at %s.", options.KernelName, path)
}

func finalize() {
	if err := recover(); err != nil {
		globalLogger.Error(utils.RedStyle.Render("Kernel panicked: %v"), err)
		os.Exit(1)
	}
}

func main() {
	defer finalize()

	ValidateOptions()

	if options.Version {
		fmt.Printf("%s kernel %s (protocol %s)\n", fake_kernel.LanguageName, fake_kernel.Version, messaging.ProtocolVersion)
		return
	}

	if options.Install {
		installKernelSpec()
		return
	}

	if options.PrettyPrintOptions {
		globalLogger.Info("Starting the kernel with the following options:\n%s\n", options.PrettyString(2))
	} else {
		globalLogger.Info("Starting the kernel with options: %v", options.String())
	}

	conn, reg, err := jupyter.ReadConnection(options.ConnectionFile)
	if err != nil {
		log.Fatalf("Failed to read connection file: %v", err)
	}

	var recorder metrics.Recorder
	if options.MetricsPort > 0 {
		prometheusManager := metrics.NewKernelPrometheusManager(options.MetricsPort, options.KernelName)
		if err := prometheusManager.Start(); err != nil {
			log.Fatalf("Failed to start Prometheus manager: %v", err)
		}
		defer func() {
			_ = prometheusManager.Stop()
		}()
		recorder = prometheusManager
	}

	dispatcher := dispatch.New(options.QueueSize, recorder)

	k, err := kernel.New(options.KernelName, conn, reg,
		kernel.WithDispatcher(dispatcher),
		kernel.WithMetrics(recorder),
		kernel.WithIOPubQueueSize(options.QueueSize))
	if err != nil {
		log.Fatalf("Failed to create kernel: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := fake_kernel.NewFakeKernel(k)
	if err := k.Connect(ctx, kernel.Handlers{Shell: backend, Control: backend}); err != nil {
		log.Fatalf("Failed to connect kernel: %v", err)
	}

	if options.CaptureStreams {
		restore, err := kernel.CaptureStandardStreams(k.IOPub())
		if err != nil {
			log.Fatalf("Failed to capture standard streams: %v", err)
		}
		defer restore()
	}

	k.SetInitialized()

	// Start detecting stop signals
	go func() {
		select {
		case <-sig:
			globalLogger.Info("Shutting down...")
			k.Stop()
		case <-k.Done():
		}
	}()

	go func() {
		<-k.Done()
		cancel()
	}()

	if err := dispatcher.Run(ctx); err != nil {
		globalLogger.Error(utils.RedStyle.Render("Main thread dispatcher failed: %v"), err)
	}

	if shutdown := k.Wait(); shutdown != nil && shutdown.Restart {
		globalLogger.Info("Kernel %s stopped for a restart.", options.KernelName)
	} else {
		globalLogger.Info("Kernel %s stopped.", options.KernelName)
	}
}
