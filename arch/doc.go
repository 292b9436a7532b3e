// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package arch provides the platform side of executors: who calls Poll,
// and how a pend reaches them.
//
// Go has no interrupt controller, so lines are modeled with goroutines.
// An Interrupt is a line with a priority whose handler runs on its own
// goroutine in interrupt context (see package critical). A ThreadExecutor
// parks a thread-mode goroutine between polls; an InterruptExecutor polls
// from an Interrupt's handler.
//
//	irq := arch.NewInterrupt(critical.PriorityHighest)
//	fast := arch.NewInterruptExecutor(irq, coex.New().Name("fast"))
//	fast.Start().MustSpawn(sensor.Spawn(readSensor))
//
//	main := arch.NewThreadExecutor(coex.New().Name("main"))
//	err := main.Run(ctx, func(s coex.Spawner) {
//	    s.MustSpawn(ui.Spawn(render))
//	})
package arch
