// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package panel

import (
	"context"

	"printpanel-go/pkg/errors"
	"printpanel-go/pkg/gate"
	"printpanel-go/pkg/gcode"
	"printpanel-go/pkg/log"
	"printpanel-go/pkg/machine"
)

// Extrusion defaults match the panel's preset fields.
const (
	DefaultExtrudeAmount = 5.0
	DefaultExtrudeSpeed  = 100.0
)

// emit sends lines as one gated unit. Nothing is sent while the printer
// is disconnected and that is not an error.
func (p *Panel) emit(ctx context.Context, name string, lines ...string) error {
	return p.emitFrom(ctx, name, func(machine.Snapshot) []string { return lines })
}

// emitFrom is emit with lines built from a snapshot taken while the gate
// is held. build may return nothing to send.
func (p *Panel) emitFrom(ctx context.Context, name string, build func(snap machine.Snapshot) []string) error {
	if !p.conn.Snapshot().Connected {
		p.logger.WithField("control", name).Debug("dropped, not connected")
		return nil
	}
	return p.gate.Do(ctx, name, p.conn, func(seq *gate.Sequence) error {
		return seq.SendAll(build(p.conn.Snapshot())...)
	})
}

// Home references the given axes, or all of them.
func (p *Panel) Home(ctx context.Context, axes ...machine.Axis) error {
	for _, a := range axes {
		if !a.Valid() {
			return errors.InvalidAxis(a.String())
		}
	}
	return p.emit(ctx, "home", gcode.Home(axes...))
}

// SetExtruderTemp sets the extruder target; 0 turns the heater off.
func (p *Panel) SetExtruderTemp(ctx context.Context, target float64) error {
	if target < 0 {
		return errors.InvalidNumericInput("extruder", gcode.Format(target), MsgNotPositive)
	}
	return p.emit(ctx, "extruder_temp", gcode.ExtruderTemp(target))
}

// SetBedTemp sets the heated bed target; 0 turns the heater off.
func (p *Panel) SetBedTemp(ctx context.Context, target float64) error {
	if !p.conn.Snapshot().Profile.HasHeatedBed {
		return errors.ControlDisabled("heated bed")
	}
	if target < 0 {
		return errors.InvalidNumericInput("bed", gcode.Format(target), MsgNotPositive)
	}
	return p.emit(ctx, "bed_temp", gcode.BedTemp(target))
}

// SetFan switches the part fan. M106 is only re-sent when the value
// differs from what the printer already runs.
func (p *Panel) SetFan(ctx context.Context, on bool, value int) error {
	if !on {
		return p.emit(ctx, "fan", gcode.CmdFanOff)
	}
	if value < 0 || value > 255 {
		return errors.InvalidNumericInput("fan", gcode.Format(float64(value)), "Value must be between 0 and 255.")
	}
	return p.emitFrom(ctx, "fan", func(snap machine.Snapshot) []string {
		if snap.FanOn && snap.FanValue == value {
			return nil
		}
		return []string{gcode.FanOn(value)}
	})
}

// SetPower switches the printer's power supply.
func (p *Panel) SetPower(ctx context.Context, on bool) error {
	if p.cfg.NoPowerControl {
		return errors.ControlDisabled("power")
	}
	if on {
		return p.emit(ctx, "power", gcode.CmdPowerOn)
	}
	return p.emit(ctx, "power", gcode.CmdPowerOff)
}

// StopMotors disables the steppers and shows the motor-stopped status.
func (p *Panel) StopMotors(ctx context.Context) error {
	if !p.conn.Snapshot().Connected {
		return nil
	}
	if err := p.emit(ctx, "motors_off", gcode.CmdMotorsOff); err != nil {
		return err
	}
	p.arbiter.Notify(machine.EventMotorStopped, p.conn.Snapshot().Signals)
	return nil
}

// DebugFlags returns the flags last set.
func (p *Panel) DebugFlags() DebugFlags {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.debug
}

// SetDebug stores flags and sends them to the firmware.
func (p *Panel) SetDebug(ctx context.Context, flags DebugFlags) error {
	p.mu.Lock()
	p.debug = flags
	p.mu.Unlock()
	return p.emit(ctx, "debug", gcode.DebugLevel(flags.Mask()))
}

func (p *Panel) sendDebugFlags(ctx context.Context) error {
	mask := p.DebugFlags().Mask()
	if mask == 0 {
		return nil
	}
	return p.emit(ctx, "debug", gcode.DebugLevel(mask))
}

// SetSpeedFactor sets the feed rate multiplier. Only Marlin and Repetier
// understand M220; an unchanged factor is not re-sent.
func (p *Panel) SetSpeedFactor(ctx context.Context, percent int) error {
	if percent <= 0 {
		return errors.InvalidNumericInput("speed", gcode.Format(float64(percent)), MsgNotPositive)
	}
	snap := p.conn.Snapshot()
	if !snap.Connected {
		return nil
	}
	if !snap.Firmware.SupportsSpeedFactor() {
		return errors.UnsupportedFirmware("M220", snap.Firmware.String())
	}
	return p.emitFrom(ctx, "speed_factor", func(snap machine.Snapshot) []string {
		if snap.SpeedFactor == percent {
			return nil
		}
		return []string{gcode.SpeedFactor(percent)}
	})
}

// SetSpeedFactorText is SetSpeedFactor for the raw percent field.
func (p *Panel) SetSpeedFactorText(ctx context.Context, text string) error {
	percent, herr := ParseInt("percent", text)
	if herr != nil {
		return herr
	}
	if percent <= 0 {
		return errors.InvalidNumericInput("percent", text, MsgNotPositive)
	}
	return p.SetSpeedFactor(ctx, percent)
}

// Extrude pushes filament. amount and speed are the raw text fields; each
// is validated on its own and all failures are reported together.
func (p *Panel) Extrude(ctx context.Context, amount, speed string) error {
	return p.extrude(ctx, "extrude", amount, speed, 1)
}

// Retract pulls filament back; see Extrude.
func (p *Panel) Retract(ctx context.Context, amount, speed string) error {
	return p.extrude(ctx, "retract", amount, speed, -1)
}

func (p *Panel) extrude(ctx context.Context, name, amountText, speedText string, sign float64) error {
	fe := errors.FieldErrors{}
	amount, err := ParseFloat("amount", amountText)
	if err != nil {
		fe.Add(err)
	}
	speed, err := ParsePositiveFloat("speed", speedText)
	if err != nil {
		fe.Add(err)
	}
	if err := fe.Err(); err != nil {
		return err
	}

	move := gcode.Extrude(sign*amount, speed)
	p.logger.WithFields(log.Fields{"amount": sign * amount, "speed": speed}).Debug(name)
	return p.emitFrom(ctx, name, func(snap machine.Snapshot) []string {
		if snap.Relative {
			return []string{move}
		}
		return []string{gcode.CmdRelative, move, gcode.CmdAbsolute}
	})
}
