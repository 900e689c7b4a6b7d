package main

import (
	synth "github.com/ekiwi/rtl-repair/src"
)

func main() {
	synth.SynthMain()
}
