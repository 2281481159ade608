package main

import (
	"flag"
	"log"
	"strings"

	"github.com/CameronBrooks11/CRUMBS/pkg/comm/mqtt"
	"github.com/CameronBrooks11/CRUMBS/pkg/env"
	"github.com/CameronBrooks11/CRUMBS/pkg/message"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	conf := env.NewConfig()
	reg, err := conf.LoadRegistry()
	if err != nil {
		log.Fatalln(err)
	}
	q := conf.MustNewQueue("crumbsmon")

	q.Sub("slice/+/+", mqtt.Handler(func(topic string, payload []byte) {
		dir := "?"
		if strings.HasSuffix(topic, "/cmd") {
			dir = ">"
		} else if strings.HasSuffix(topic, "/tm") {
			dir = "<"
		}
		m, err := message.Decode(payload)
		if err != nil {
			log.Printf("%s %s: bad message of %d bytes", dir, topic, len(payload))
			return
		}
		log.Printf("%s %s", dir, reg.Describe(m))
	}))

	token := q.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		log.Fatalln(err)
	}
	<-(chan struct{})(nil)
}
