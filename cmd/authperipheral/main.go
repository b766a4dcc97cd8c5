package main

import (
	"flag"
	"os"

	"github.com/sirupsen/logrus"
	log "github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/avalu/authperipheral/pkg/config"
	"github.com/avalu/authperipheral/pkg/core"
	"github.com/avalu/authperipheral/pkg/gatt"
	"github.com/avalu/authperipheral/pkg/hci"
	"github.com/avalu/authperipheral/pkg/keys"
)

func main() {
	// if both verbose and quiet are chosen, e.g., -v -q, the verbose dominates
	var traceLevel = flag.Bool("v", false, "verbose off by default, TraceLevel")
	var infoLevel = flag.Bool("q", false, "quiet off by default, InfoLevel")

	var privateKeyPath = flag.String("key", "", "private key DER path (default pico_priv_key.der, falls back to AUTHPERIPHERAL_KEY_DIR)")
	var publicKeyPath = flag.String("pubkey", "", "public key DER path (default pico_pub_key.der, falls back to AUTHPERIPHERAL_PUBKEY_DIR)")
	var usersPath = flag.String("users", "", "user list path (default users.txt, falls back to AUTHPERIPHERAL_USERS_PATH)")
	var maxSendSize = flag.Int("max-send-size", core.DefaultMaxSendSize, "maximum outbound chunk size")
	var recycleInterval = flag.Duration("recycle-interval", core.DefaultRecycleInterval, "advertisement recycle period")
	var deviceID = flag.Int("device-id", 0, "HCI device id, e.g. 0 for hci0")

	flag.Parse()

	if *traceLevel {
		log.SetLevel(log.TraceLevel)
	} else if *infoLevel {
		log.SetLevel(log.InfoLevel)
	} else {
		log.SetLevel(log.DebugLevel)
	}

	log.SetFormatter(&logrus.TextFormatter{
		DisableQuote: true,
		ForceColors:  true,
	})

	cfg, err := config.New(*privateKeyPath, *publicKeyPath, *usersPath, *maxSendSize, *recycleInterval, log.GetLevel().String())
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	material := keys.Load(cfg.PrivateKeyPath, cfg.PublicKeyPath, cfg.UsersPath)

	// shared_load_or_generate_keys(shared, pubkey_path, privkey_path)
	// (dbus-test.c:908) folds both key files into one shared byte blob,
	// public key first; mirrored here since fsm.Start only takes one
	// "shared" argument.
	shared := append([]byte{}, material.PublicKeyDER...)
	shared = append(shared, material.PrivateKeyDER...)

	broker := gatt.New()
	tuner := hci.New(*deviceID)
	fsm := newLoggingFSM()

	svc, err := core.NewService(broker, fsm, tuner, core.DeriveServiceUUID, cfg.MaxSendSize, cfg.RecycleInterval)
	if err != nil {
		log.Fatalf("service: %v", err)
	}
	broker.SetCallbacks(svc)
	fsm.callbacks = svc.Bridge()

	log.Info("Starting BLE peripheral authentication service")
	log.Infof("Incoming characteristic: %s", gatt.IncomingCharUUID)
	log.Infof("Outgoing characteristic: %s", gatt.OutgoingCharUUID)

	go svc.Run()

	fsm.Start(shared, material.Users, nil)

	runKeyboardLoop(svc.Controller())

	log.Info("Exiting")
	svc.Shutdown()
	os.Exit(0)
}

// runKeyboardLoop drives the five-key control surface of spec.md §6:
// s -> start continuous advertise, c -> start non-continuous advertise,
// f -> finalising stop, d -> non-finalising stop, q -> quit.
// Explicitly not a stable interface.
func runKeyboardLoop(controller *core.LifecycleController) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		log.Warn("stdin is not a terminal, keyboard control surface disabled")
		select {}
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		log.Warnf("could not enter raw terminal mode: %v", err)
		select {}
	}
	defer term.Restore(fd, oldState)

	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil || n == 0 {
			return
		}

		switch buf[0] {
		case 's':
			controller.Advertise(true)
		case 'c':
			controller.Advertise(false)
		case 'f':
			controller.Stop(true)
		case 'd':
			controller.Stop(false)
		case 'q':
			return
		}
	}
}

// loggingFSM is a placeholder AuthFSM: the authentication finite-state
// machine itself is out of scope (spec.md §1), so this wiring target
// only logs what it is asked to do.
type loggingFSM struct {
	callbacks core.FSMCallbacks
}

func newLoggingFSM() *loggingFSM {
	return &loggingFSM{}
}

func (f *loggingFSM) Start(shared, users, extraData []byte) {
	log.Debugf("fsm: start, shared=%d bytes, users=%d bytes, extra=%d bytes", len(shared), len(users), len(extraData))
	if f.callbacks != nil {
		f.callbacks.Listen()
	}
}

func (f *loggingFSM) Connected() {
	log.Info("fsm: central connected")
}

func (f *loggingFSM) Disconnected() {
	log.Info("fsm: central disconnected")
}

func (f *loggingFSM) Read(message []byte) {
	log.Debugf("fsm: read %d bytes", len(message))
}

func (f *loggingFSM) Timeout() {
	log.Debug("fsm: timeout fired")
}

var _ core.AuthFSM = (*loggingFSM)(nil)
